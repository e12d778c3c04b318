//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"mirror-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideLimitsWatcher,
	ProvideDomainConfig,
	ProvideStore,
	ProvideResilientStore,
	ProvideSlotStore,
	ProvideCrisisScanner,
	ProvideStateManager,
	ProvideSessions,
	ProvideBackupService,
	ProvideHub,
	ProvideWebSocketServer,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
