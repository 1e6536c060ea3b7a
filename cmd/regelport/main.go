package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openytelse/regelport/internal/behov"
	"github.com/openytelse/regelport/internal/clock"
	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/ident"
	"github.com/openytelse/regelport/internal/lovverk"
	"github.com/openytelse/regelport/internal/migration"
	"github.com/openytelse/regelport/internal/mottak"
	"github.com/openytelse/regelport/internal/observability"
	"github.com/openytelse/regelport/internal/regelbus"
	"github.com/openytelse/regelport/internal/server"
	"github.com/openytelse/regelport/internal/subsumsjon"
	"github.com/openytelse/regelport/internal/vaktmester"
	"github.com/openytelse/regelport/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ident.Module,
		regelbus.Module,
		migration.Module,

		// Functional domains
		behov.Module,
		subsumsjon.Module,
		mottak.Module,
		lovverk.Module,
		vaktmester.Module,
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
