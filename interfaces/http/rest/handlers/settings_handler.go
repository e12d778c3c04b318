package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"mirror-backend/application/state"
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/pkg/common"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/utils"
)

// SettingsHandler handles the settings singleton and the ephemeral UI
// context flags
type SettingsHandler struct {
	manager *state.Manager
	logger  *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(manager *state.Manager, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{manager: manager, logger: logger}
}

// UpdateSettingsRequest is the request body for partial settings updates
type UpdateSettingsRequest struct {
	Theme           *string `json:"theme,omitempty" validate:"omitempty,oneof=system light dark"`
	ReducedMotion   *bool   `json:"reducedMotion,omitempty"`
	HighContrast    *bool   `json:"highContrast,omitempty"`
	DefaultLayer    *string `json:"defaultLayer,omitempty" validate:"omitempty,oneof=private shared experimental"`
	DefaultModality *string `json:"defaultModality,omitempty" validate:"omitempty,oneof=text voice video document"`
}

// ContextRequest sets the ephemeral UI context flags
type ContextRequest struct {
	CurrentLayer  *string `json:"currentLayer,omitempty" validate:"omitempty,oneof=private shared experimental"`
	CurrentThread *string `json:"currentThread,omitempty"`
	CurrentAxis   *string `json:"currentAxis,omitempty"`
	CrisisMode    *bool   `json:"crisisMode,omitempty"`
}

// GetSettings handles GET /settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, toSettingsResponse(h.manager.GetState().Settings))
}

// UpdateSettings handles PUT /settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	opts := state.UpdateSettingsOptions{
		ReducedMotion: req.ReducedMotion,
		HighContrast:  req.HighContrast,
	}
	if req.Theme != nil {
		theme := entities.Theme(*req.Theme)
		opts.Theme = &theme
	}
	if req.DefaultLayer != nil {
		layer := valueobjects.Layer(*req.DefaultLayer)
		opts.DefaultLayer = &layer
	}
	if req.DefaultModality != nil {
		modality := valueobjects.Modality(*req.DefaultModality)
		opts.DefaultModality = &modality
	}

	settings, err := h.manager.UpdateSettings(r.Context(), opts)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// UpdateContext handles PUT /context, setting the ephemeral flags that
// default new reflections. An empty currentThread or currentAxis clears
// the selection.
func (h *SettingsHandler) UpdateContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if req.CurrentLayer != nil {
		if err := h.manager.SetCurrentLayer(valueobjects.Layer(*req.CurrentLayer)); err != nil {
			common.RespondAppError(w, err)
			return
		}
	}
	if req.CurrentThread != nil {
		threadID := valueobjects.ThreadID{}
		if *req.CurrentThread != "" {
			parsed, err := valueobjects.NewThreadIDFromString(*req.CurrentThread)
			if err != nil {
				common.RespondAppError(w, err)
				return
			}
			threadID = parsed
		}
		if err := h.manager.SetCurrentThread(threadID); err != nil {
			common.RespondAppError(w, err)
			return
		}
	}
	if req.CurrentAxis != nil {
		axisID := valueobjects.AxisID{}
		if *req.CurrentAxis != "" {
			parsed, err := valueobjects.NewAxisIDFromString(*req.CurrentAxis)
			if err != nil {
				common.RespondAppError(w, err)
				return
			}
			axisID = parsed
		}
		if err := h.manager.SetCurrentAxis(axisID); err != nil {
			common.RespondAppError(w, err)
			return
		}
	}
	if req.CrisisMode != nil {
		h.manager.SetCrisisMode(*req.CrisisMode)
	}

	common.RespondJSON(w, http.StatusOK, toStateResponse(h.manager.GetState()))
}

// GetState handles GET /state, the full snapshot in one response
func (h *SettingsHandler) GetState(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, toStateResponse(h.manager.GetState()))
}
