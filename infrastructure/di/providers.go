package di

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mirror-backend/application/draft"
	"mirror-backend/application/ports"
	"mirror-backend/application/services"
	"mirror-backend/application/state"
	domainconfig "mirror-backend/domain/config"
	"mirror-backend/infrastructure/config"
	badgerstore "mirror-backend/infrastructure/persistence/badger"
	"mirror-backend/infrastructure/persistence/resilience"
	"mirror-backend/interfaces/http/rest"
	"mirror-backend/interfaces/websocket"
	"mirror-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector("mirror")
}

// ProvideLimitsWatcher creates the hot-reload watcher for the limits file.
// Returns nil when no limits file is configured.
func ProvideLimitsWatcher(cfg *config.Config, logger *zap.Logger) (*config.LimitsWatcher, func(), error) {
	if cfg.LimitsFile == "" {
		return nil, func() {}, nil
	}

	watcher, err := config.NewLimitsWatcher(cfg.LimitsFile, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start()
	return watcher, watcher.Stop, nil
}

// ProvideDomainConfig builds the domain limits, overlaying the limits file
// when one is configured. Each reload publishes a fresh config through the
// holder; operations that already loaded the previous one finish under it.
func ProvideDomainConfig(watcher *config.LimitsWatcher) *domainconfig.Limits {
	base := domainconfig.DefaultDomainConfig()
	if watcher == nil {
		return domainconfig.NewLimits(base)
	}

	watcher.Current().Apply(base)
	limits := domainconfig.NewLimits(base)
	watcher.OnChange(func(dyn config.DynamicLimits) {
		next := domainconfig.DefaultDomainConfig()
		dyn.Apply(next)
		limits.Replace(next)
	})
	return limits
}

// ProvideStore opens the Badger database
func ProvideStore(cfg *config.Config, logger *zap.Logger) (*badgerstore.Store, func(), error) {
	store, err := badgerstore.NewStore(badgerstore.Config{
		Path:       cfg.DataDir,
		SyncWrites: cfg.SyncWrites,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("Failed to close store", zap.Error(closeErr))
		}
	}
	return store, cleanup, nil
}

// ProvideResilientStore wraps the store with a circuit breaker
func ProvideResilientStore(store *badgerstore.Store, logger *zap.Logger, metrics *observability.Collector) ports.Store {
	return resilience.NewBreakerStore(store, resilience.DefaultBreakerConfig(), logger, metrics)
}

// ProvideSlotStore returns the slot store, encrypted when a recovery
// passphrase is configured
func ProvideSlotStore(store *badgerstore.Store, cfg *config.Config) (ports.SlotStore, error) {
	if cfg.RecoveryPassphrase == "" {
		return store, nil
	}
	return badgerstore.NewEncryptedSlots(store, cfg.RecoveryPassphrase)
}

// ProvideCrisisScanner creates the crisis term scanner
func ProvideCrisisScanner(logger *zap.Logger) *services.CrisisScanner {
	return services.NewCrisisScanner(logger)
}

// ProvideStateManager creates the state manager
func ProvideStateManager(
	store ports.Store,
	scanner *services.CrisisScanner,
	limits *domainconfig.Limits,
	logger *zap.Logger,
	metrics *observability.Collector,
) *state.Manager {
	return state.NewManager(store, scanner, limits, logger, metrics)
}

// ProvideSessions creates the draft session registry
func ProvideSessions(
	limits *domainconfig.Limits,
	slots ports.SlotStore,
	logger *zap.Logger,
	metrics *observability.Collector,
) *draft.Sessions {
	return draft.NewSessions(limits, slots, logger, metrics)
}

// ProvideBackupService creates the backup service
func ProvideBackupService(store ports.Store, slots ports.SlotStore, logger *zap.Logger) *services.BackupService {
	return services.NewBackupService(store, slots, logger)
}

// ProvideHub creates the WebSocket hub
func ProvideHub(logger *zap.Logger, metrics *observability.Collector) *websocket.Hub {
	return websocket.NewHub(logger, metrics)
}

// ProvideWebSocketServer creates the WebSocket upgrade handler
func ProvideWebSocketServer(hub *websocket.Hub, logger *zap.Logger) *websocket.Server {
	return websocket.NewServer(hub, nil, logger)
}

// ProvideRouter creates the REST router
func ProvideRouter(
	manager *state.Manager,
	sessions *draft.Sessions,
	backups *services.BackupService,
	store ports.Store,
	cfg *config.Config,
	metrics *observability.Collector,
	ws *websocket.Server,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(manager, sessions, backups, store, cfg, metrics, ws, logger)
}
