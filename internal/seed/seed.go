package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	volunteerdomain "github.com/careops/mealtrack/internal/volunteer/domain"
	"gorm.io/gorm"
)

var defaultVolunteers = []struct {
	Name  string
	Email string
	Phone string
}{
	{Name: "陳志明", Email: "chih.ming@example.org", Phone: "0912345678"},
	{Name: "林美玲", Email: "mei.ling@example.org", Phone: "0923456789"},
	{Name: "王大同", Email: "da.tong@example.org", Phone: "0934567890"},
}

// EnsureDefaultVolunteers seeds a small roster so a fresh install can
// assign and dispatch deliveries immediately.
func EnsureDefaultVolunteers(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range defaultVolunteers {
			var existing volunteerdomain.Volunteer
			err := tx.WithContext(ctx).
				Where("email = ?", strings.ToLower(seed.Email)).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			volunteer := volunteerdomain.Volunteer{
				ID:        node.Generate(),
				Name:      seed.Name,
				Email:     strings.ToLower(seed.Email),
				Phone:     seed.Phone,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&volunteer).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
