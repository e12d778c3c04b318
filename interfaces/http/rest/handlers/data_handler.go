package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/application/services"
	"mirror-backend/application/state"
	"mirror-backend/pkg/common"
)

// importBodyBytes caps import payloads well above normal journal sizes so a
// legitimate full export always fits.
const importBodyBytes = 64 << 20

// DataHandler serves whole-store operations: export, import, clear, and the
// backup slot lifecycle.
type DataHandler struct {
	manager *state.Manager
	backups *services.BackupService
	logger  *zap.Logger
}

// NewDataHandler creates a data handler
func NewDataHandler(manager *state.Manager, backups *services.BackupService, logger *zap.Logger) *DataHandler {
	return &DataHandler{
		manager: manager,
		backups: backups,
		logger:  logger,
	}
}

// Export handles GET /api/data/export
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.manager.ExportAllData(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	filename := fmt.Sprintf("mirror-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	common.RespondJSON(w, http.StatusOK, doc)
}

// Import handles POST /api/data/import
func (h *DataHandler) Import(w http.ResponseWriter, r *http.Request) {
	var doc ports.ExportDocument
	if err := common.ParseJSONBody(r, &doc, importBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.manager.ImportData(r.Context(), &doc); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("data imported",
		zap.Int("reflections", len(doc.Reflections)),
		zap.Int("threads", len(doc.Threads)),
		zap.Int("axes", len(doc.Axes)),
	)
	common.RespondJSON(w, http.StatusOK, toStateResponse(h.manager.GetState()))
}

// Clear handles POST /api/data/clear. Destructive, so it demands an explicit
// confirm query parameter.
func (h *DataHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		common.RespondError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", "Pass confirm=true to clear all data")
		return
	}

	if err := h.manager.ClearAllData(r.Context()); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("all data cleared")
	common.RespondJSON(w, http.StatusOK, toStateResponse(h.manager.GetState()))
}

// CreateBackup handles POST /api/backups
func (h *DataHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := h.backups.CreateBackup(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("backup created", zap.String("slot", info.Slot))
	common.RespondJSON(w, http.StatusCreated, info)
}

// ListBackups handles GET /api/backups
func (h *DataHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	infos, err := h.backups.ListBackups(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, infos)
}

// GetBackup handles GET /api/backups/{slot}
func (h *DataHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	doc, err := h.backups.GetBackup(r.Context(), slot)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, doc)
}

// RestoreBackup handles POST /api/backups/{slot}/restore. The backup service
// only reads the blob; the state manager owns the actual replacement so the
// cache and subscribers stay consistent.
func (h *DataHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	doc, err := h.backups.GetBackup(r.Context(), slot)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.manager.ImportData(r.Context(), doc); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("backup restored", zap.String("slot", slot))
	common.RespondJSON(w, http.StatusOK, toStateResponse(h.manager.GetState()))
}

// DeleteBackup handles DELETE /api/backups/{slot}
func (h *DataHandler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	if err := h.backups.DeleteBackup(r.Context(), slot); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"slot": slot})
}

// PruneBackups handles POST /api/backups/prune?keep=N
func (h *DataHandler) PruneBackups(w http.ResponseWriter, r *http.Request) {
	keep := 10
	if raw := r.URL.Query().Get("keep"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "keep must be a non-negative integer")
			return
		}
		keep = parsed
	}

	removed, err := h.backups.PruneBackups(r.Context(), keep)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
