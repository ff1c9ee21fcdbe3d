package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/clock"
	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/delivery/domain"
	deliveryrepo "github.com/careops/mealtrack/internal/delivery/repository"
	"github.com/careops/mealtrack/internal/providers/sms"
	trackingdomain "github.com/careops/mealtrack/internal/tracking/domain"
	trackingrepo "github.com/careops/mealtrack/internal/tracking/repository"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
	volunteerrepo "github.com/careops/mealtrack/internal/volunteer/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type notifierSpy struct {
	mu   sync.Mutex
	sent []sms.Notification
	err  error
}

func (n *notifierSpy) SendDeliveryNotification(_ context.Context, msg sms.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *notifierSpy) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	notifier *notifierSpy
	clock    *clock.FakeClock
	genID    *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Delivery{},
		&volunteerdomain.Volunteer{},
		&trackingdomain.TrackingPoint{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	notifier := &notifierSpy{}
	fakeClock := clock.NewFakeClock(time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Cfg:           config.Config{BaseURL: "https://meals.example.org"},
		DB:            db,
		Log:           zaptest.NewLogger(t),
		GenID:         node,
		Clock:         fakeClock,
		Repo:          deliveryrepo.Provide(),
		VolunteerRepo: volunteerrepo.Provide(),
		TrackingRepo:  trackingrepo.Provide(),
		Notifier:      notifier,
	})

	return &fixture{svc: svc, db: db, notifier: notifier, clock: fakeClock, genID: node}
}

func (f *fixture) createVolunteer(t *testing.T, active bool) volunteerdomain.Volunteer {
	t.Helper()
	volunteer := volunteerdomain.Volunteer{
		ID:        f.genID.Generate(),
		Name:      "林美玲",
		Email:     "volunteer@example.org",
		Active:    active,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&volunteer).Error)
	return volunteer
}

func validCreateRequest() domain.CreateDeliveryRequest {
	return domain.CreateDeliveryRequest{
		RecipientName:  "王小明",
		RecipientPhone: "0912345678",
		Address:        "台東市中華路一段100號",
		MealType:       "午餐",
		DeliveryDate:   "2024-12-01",
		DeliveryTime:   "11:00-12:00",
	}
}

func TestCreateDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Regexp(t, regexp.MustCompile(`^MD\d+$`), created.DeliveryNumber)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), created.VerificationCode)
	assert.Nil(t, created.DeliveredTime)
	assert.Contains(t, created.QRPayload, created.DeliveryNumber)

	assert.Equal(t, 1, f.notifier.count())
	assert.Contains(t, f.notifier.sent[0].ConfirmURL, "/confirm-receipt/"+created.ID.String())
}

func TestCreateDeliveryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*domain.CreateDeliveryRequest)
		wantErr error
	}{
		{"empty recipient", func(r *domain.CreateDeliveryRequest) { r.RecipientName = "  " }, domain.ErrInvalidRecipient},
		{"empty address", func(r *domain.CreateDeliveryRequest) { r.Address = "" }, domain.ErrInvalidAddress},
		{"bad date", func(r *domain.CreateDeliveryRequest) { r.DeliveryDate = "12/01/2024" }, domain.ErrInvalidDate},
		{"bad window", func(r *domain.CreateDeliveryRequest) { r.DeliveryTime = "11am-noon" }, domain.ErrInvalidTimeWindow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateDeliveryNotifierFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = fmt.Errorf("sms gateway down")

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	fetched, err := f.svc.GetByID(context.Background(), domain.GetDeliveryRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fetched.Status)
}

func TestCreateDeliveryBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateBatch(ctx, domain.CreateDeliveryBatchRequest{
		Deliveries: []domain.CreateDeliveryRequest{validCreateRequest(), validCreateRequest()},
	})
	require.NoError(t, err)
	require.Len(t, resp.Created, 2)

	assert.NotEqual(t, resp.Created[0].DeliveryNumber, resp.Created[1].DeliveryNumber)
	assert.NotEqual(t, resp.Created[0].VerificationCode, resp.Created[1].VerificationCode)
	for _, item := range resp.Created {
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), item.VerificationCode)
	}
}

func TestCreateDeliveryBatchEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBatch(context.Background(), domain.CreateDeliveryBatchRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	volunteer := f.createVolunteer(t, true)

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	id := created.ID.String()

	// pending -> in_transit is not allowed.
	_, err = f.svc.Start(ctx, domain.StartDeliveryRequest{ID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assigned, err := f.svc.AssignVolunteer(ctx, domain.AssignVolunteerRequest{ID: id, VolunteerID: volunteer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.VolunteerID)
	assert.Equal(t, volunteer.ID, *assigned.VolunteerID)

	f.clock.Advance(10 * time.Minute)
	started, err := f.svc.Start(ctx, domain.StartDeliveryRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInTransit, started.Status)
	require.NotNil(t, started.StartTime)

	// Re-starting an in-transit delivery is rejected.
	_, err = f.svc.Start(ctx, domain.StartDeliveryRequest{ID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	f.clock.Advance(25 * time.Minute)
	completed, err := f.svc.Complete(ctx, domain.CompleteDeliveryRequest{ID: id, Photo: "photo.jpg"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, completed.Status)
	require.NotNil(t, completed.DeliveredTime)
	assert.Equal(t, "photo.jpg", completed.Photo)

	// Delivered is terminal.
	_, err = f.svc.Cancel(ctx, domain.CancelDeliveryRequest{ID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAssignVolunteerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.AssignVolunteer(ctx, domain.AssignVolunteerRequest{
		ID:          created.ID.String(),
		VolunteerID: f.genID.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVolunteer)

	inactive := f.createVolunteer(t, false)
	_, err = f.svc.AssignVolunteer(ctx, domain.AssignVolunteerRequest{
		ID:          created.ID.String(),
		VolunteerID: inactive.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrVolunteerInactive)
}

func TestCancelDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, domain.CancelDeliveryRequest{
		ID:     created.ID.String(),
		Reason: "收餐人外出",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "收餐人外出", cancelled.Notes)

	// Cancelled is terminal too.
	_, err = f.svc.Cancel(ctx, domain.CancelDeliveryRequest{ID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestVerifyCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	resp, err := f.svc.Verify(ctx, domain.VerifyCodeRequest{ID: created.ID.String(), Code: created.VerificationCode})
	require.NoError(t, err)
	assert.True(t, resp.Valid)

	resp, err = f.svc.Verify(ctx, domain.VerifyCodeRequest{ID: created.ID.String(), Code: "000000"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	// Verify has no side effects.
	fetched, err := f.svc.GetByID(ctx, domain.GetDeliveryRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fetched.Status)
}

func TestConfirmReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	id := created.ID.String()

	// Wrong code never changes status, no matter how often it is retried.
	for i := 0; i < 3; i++ {
		_, err = f.svc.ConfirmReceipt(ctx, domain.ConfirmReceiptRequest{ID: id, Code: "999999"})
		assert.ErrorIs(t, err, domain.ErrCodeMismatch)
	}
	fetched, err := f.svc.GetByID(ctx, domain.GetDeliveryRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fetched.Status)

	lat, lon := 22.7583, 121.1444
	confirmed, err := f.svc.ConfirmReceipt(ctx, domain.ConfirmReceiptRequest{
		ID:        id,
		Code:      created.VerificationCode,
		Latitude:  &lat,
		Longitude: &lon,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, confirmed.Status)
	require.NotNil(t, confirmed.DeliveredTime)

	var points []trackingdomain.TrackingPoint
	require.NoError(t, f.db.Where("delivery_id = ?", created.ID).Find(&points).Error)
	require.Len(t, points, 1)
	assert.Equal(t, lat, points[0].Latitude)

	// Second confirm with the correct code is rejected, status unchanged.
	_, err = f.svc.ConfirmReceipt(ctx, domain.ConfirmReceiptRequest{ID: id, Code: created.VerificationCode})
	assert.ErrorIs(t, err, domain.ErrAlreadyDelivered)

	fetched, err = f.svc.GetByID(ctx, domain.GetDeliveryRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, fetched.Status)
	assert.Equal(t, confirmed.DeliveredTime.Unix(), fetched.DeliveredTime.Unix())
}

func TestConfirmReceiptCodeWhitespace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmReceipt(ctx, domain.ConfirmReceiptRequest{
		ID:   created.ID.String(),
		Code: "  " + created.VerificationCode + "\n",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, confirmed.Status)
}

func TestConfirmReceiptNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmReceipt(context.Background(), domain.ConfirmReceiptRequest{
		ID:   f.genID.Generate().String(),
		Code: "123456",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, validCreateRequest())
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	resp, err := f.svc.List(ctx, domain.ListDeliveryRequest{Status: string(domain.StatusPending)})
	require.NoError(t, err)
	assert.Len(t, resp.Deliveries, 3)
	assert.False(t, resp.HasMore)

	_, err = f.svc.List(ctx, domain.ListDeliveryRequest{Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestListByVolunteer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	volunteer := f.createVolunteer(t, true)

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = f.svc.AssignVolunteer(ctx, domain.AssignVolunteerRequest{
		ID:          created.ID.String(),
		VolunteerID: volunteer.ID.String(),
	})
	require.NoError(t, err)

	resp, err := f.svc.ListByVolunteer(ctx, domain.ListByVolunteerRequest{VolunteerID: volunteer.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Deliveries, 1)
	assert.Equal(t, created.ID, resp.Deliveries[0].ID)
}

type hookedRepo struct {
	domain.Repository
	insertFn  func(ctx context.Context, db *gorm.DB, delivery *domain.Delivery) error
	confirmFn func(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
}

func (r *hookedRepo) Insert(ctx context.Context, db *gorm.DB, delivery *domain.Delivery) error {
	if r.insertFn != nil {
		return r.insertFn(ctx, db, delivery)
	}
	return r.Repository.Insert(ctx, db, delivery)
}

func (r *hookedRepo) ConfirmDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	if r.confirmFn != nil {
		return r.confirmFn(ctx, db, id, now)
	}
	return r.Repository.ConfirmDelivered(ctx, db, id, now)
}

func (f *fixture) serviceWithRepo(t *testing.T, repo domain.Repository) domain.Service {
	t.Helper()
	return New(Params{
		Cfg:           config.Config{BaseURL: "https://meals.example.org"},
		DB:            f.db,
		Log:           zaptest.NewLogger(t),
		GenID:         f.genID,
		Clock:         f.clock,
		Repo:          repo,
		VolunteerRepo: volunteerrepo.Provide(),
		TrackingRepo:  trackingrepo.Provide(),
		Notifier:      f.notifier,
	})
}

func TestConfirmReceiptCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	id := created.ID.String()

	_, err = f.svc.Cancel(ctx, domain.CancelDeliveryRequest{ID: id, Reason: "收餐人外出"})
	require.NoError(t, err)

	// A correct code cannot resurrect a cancelled delivery.
	_, err = f.svc.ConfirmReceipt(ctx, domain.ConfirmReceiptRequest{ID: id, Code: created.VerificationCode})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	fetched, err := f.svc.GetByID(ctx, domain.GetDeliveryRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, fetched.Status)
	assert.Nil(t, fetched.DeliveredTime)
}

func TestConfirmDeliveredRejectsCancelledRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, domain.CancelDeliveryRequest{ID: created.ID.String()})
	require.NoError(t, err)

	rows, err := deliveryrepo.Provide().ConfirmDelivered(ctx, f.db, created.ID, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestInsertDuplicateVerificationCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	now := f.clock.Now()
	dup := domain.Delivery{
		ID:               f.genID.Generate(),
		RecipientName:    "李大華",
		Address:          "台東市中山路50號",
		DeliveryDate:     created.DeliveryDate,
		VerificationCode: created.VerificationCode,
		Status:           domain.StatusPending,
		Metadata:         datatypes.JSONMap{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	dup.DeliveryNumber = domain.NewDeliveryNumber(dup.ID)

	err = deliveryrepo.Provide().Insert(ctx, f.db, &dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	collisions := 0
	repo := &hookedRepo{Repository: deliveryrepo.Provide()}
	repo.insertFn = func(ctx context.Context, db *gorm.DB, delivery *domain.Delivery) error {
		if collisions < 2 {
			collisions++
			return domain.ErrDuplicateCode
		}
		return repo.Repository.Insert(ctx, db, delivery)
	}
	svc := f.serviceWithRepo(t, repo)

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, collisions)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), created.VerificationCode)

	var count int64
	require.NoError(t, f.db.Model(&domain.Delivery{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConfirmReceiptLostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	repo := &hookedRepo{Repository: deliveryrepo.Provide()}
	repo.confirmFn = func(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
		// A concurrent confirm lands between the status read and the
		// conditional update.
		err := db.WithContext(ctx).Exec(
			`UPDATE meal_deliveries SET status = ?, delivered_time = ? WHERE id = ?`,
			domain.StatusDelivered, now, id,
		).Error
		require.NoError(t, err)
		return repo.Repository.ConfirmDelivered(ctx, db, id, now)
	}
	svc := f.serviceWithRepo(t, repo)

	_, err = svc.ConfirmReceipt(ctx, domain.ConfirmReceiptRequest{
		ID:   created.ID.String(),
		Code: created.VerificationCode,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyDelivered)

	fetched, err := f.svc.GetByID(ctx, domain.GetDeliveryRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, fetched.Status)
}
