package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/config"
	"github.com/skillbase/skillbase/internal/course"
	"github.com/skillbase/skillbase/internal/enrollment"
	"github.com/skillbase/skillbase/internal/logger"
	"github.com/skillbase/skillbase/internal/metrics"
	"github.com/skillbase/skillbase/internal/migration"
	"github.com/skillbase/skillbase/internal/purchase"
	"github.com/skillbase/skillbase/internal/ratelimit"
	"github.com/skillbase/skillbase/internal/server"
	"github.com/skillbase/skillbase/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,
		ratelimit.Module,

		course.Module,
		enrollment.Module,
		purchase.Module,
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
