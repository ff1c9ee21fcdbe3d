package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("sms provider returned %d: %s", e.Code, e.Body)
}

type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
}

// HTTPProvider posts to a Twilio-style messages API.
type HTTPProvider struct {
	session *http.Client
	cfg     Config
}

func NewHTTP(cfg Config) (*HTTPProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("sms account credentials are empty")
	}
	if cfg.FromNumber == "" {
		return nil, errors.New("sms from number is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		cfg:     cfg,
	}, nil
}

func (p *HTTPProvider) SendDeliveryNotification(ctx context.Context, n Notification) error {
	to := FormatPhoneNumber(n.To)
	if to == "" {
		return errors.New("sms recipient number is empty")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.cfg.FromNumber)
	form.Set("Body", renderBody(n))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.cfg.BaseURL, p.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return nil
}

func renderBody(n Notification) string {
	var b strings.Builder
	b.WriteString("【送餐通知】")
	if n.RecipientName != "" {
		b.WriteString(n.RecipientName)
		b.WriteString(" 您好，")
	}
	b.WriteString(fmt.Sprintf("您的餐點 %s 預計於 %s", n.DeliveryNumber, n.DeliveryDate.Format("2006-01-02")))
	if n.DeliveryTime != "" {
		b.WriteString(" ")
		b.WriteString(n.DeliveryTime)
	}
	b.WriteString(fmt.Sprintf(" 送達。驗證碼：%s。", n.VerificationCode))
	if n.ConfirmURL != "" {
		b.WriteString("收到餐點後請點擊確認：")
		b.WriteString(n.ConfirmURL)
	}
	return b.String()
}
