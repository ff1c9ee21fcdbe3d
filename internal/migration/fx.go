package migration

import (
	"strings"

	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Schema migrations target postgres. For sqlite (tests, demos) the
		// schema is created by the caller.
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.SeedVolunteers {
			return seed.EnsureDefaultVolunteers(conn)
		}
		return nil
	}),
)
