package di

import (
	"go.uber.org/zap"

	"mirror-backend/application/draft"
	"mirror-backend/application/ports"
	"mirror-backend/application/services"
	"mirror-backend/application/state"
	domainconfig "mirror-backend/domain/config"
	"mirror-backend/infrastructure/config"
	"mirror-backend/interfaces/http/rest"
	"mirror-backend/interfaces/websocket"
	"mirror-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Collector
	LimitsWatcher *config.LimitsWatcher
	Limits        *domainconfig.Limits
	Store         ports.Store
	Slots         ports.SlotStore
	Scanner       *services.CrisisScanner
	Manager       *state.Manager
	Sessions      *draft.Sessions
	Backups       *services.BackupService
	Hub           *websocket.Hub
	WebSocket     *websocket.Server
	Router        *rest.Router
}
