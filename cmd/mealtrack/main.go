package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/careops/mealtrack/internal/clock"
	"github.com/careops/mealtrack/internal/migration"
	"github.com/careops/mealtrack/internal/observability"
	"github.com/careops/mealtrack/internal/server"
	"github.com/careops/mealtrack/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		server.Module,
		migration.Module,
	)

	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
