package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/receptionist/internal/billing"
	"github.com/smallbiznis/receptionist/internal/business"
	"github.com/smallbiznis/receptionist/internal/calendar"
	"github.com/smallbiznis/receptionist/internal/call"
	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/migration"
	"github.com/smallbiznis/receptionist/internal/observability"
	"github.com/smallbiznis/receptionist/internal/phonenumber"
	"github.com/smallbiznis/receptionist/internal/ratelimit"
	"github.com/smallbiznis/receptionist/internal/server"
	"github.com/smallbiznis/receptionist/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,

		business.Module,
		phonenumber.Module,
		billing.Module,
		calendar.Module,
		call.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
