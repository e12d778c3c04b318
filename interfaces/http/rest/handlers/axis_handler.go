package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mirror-backend/application/state"
	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/pkg/common"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/utils"
)

// AxisHandler handles identity-axis HTTP requests
type AxisHandler struct {
	manager *state.Manager
	logger  *zap.Logger
}

// NewAxisHandler creates a new identity-axis handler
func NewAxisHandler(manager *state.Manager, logger *zap.Logger) *AxisHandler {
	return &AxisHandler{manager: manager, logger: logger}
}

// CreateAxisRequest is the request body for creating an identity axis
type CreateAxisRequest struct {
	Name  string `json:"name" validate:"required,max=80"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateAxisRequest is the request body for partial updates
type UpdateAxisRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// ListAxes handles GET /axes
func (h *AxisHandler) ListAxes(w http.ResponseWriter, r *http.Request) {
	snap := h.manager.GetState()
	out := make([]AxisResponse, 0, len(snap.Axes))
	for _, a := range snap.Axes {
		out = append(out, toAxisResponse(a))
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// GetAxis handles GET /axes/{axisID}
func (h *AxisHandler) GetAxis(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewAxisIDFromString(chi.URLParam(r, "axisID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	axis, err := h.manager.GetAxis(id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAxisResponse(axis))
}

// CreateAxis handles POST /axes
func (h *AxisHandler) CreateAxis(w http.ResponseWriter, r *http.Request) {
	var req CreateAxisRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	axis, err := h.manager.CreateIdentityAxis(r.Context(), req.Name, req.Color)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("Identity axis created", zap.String("id", axis.ID().String()))
	common.RespondJSON(w, http.StatusCreated, toAxisResponse(axis))
}

// UpdateAxis handles PUT /axes/{axisID}
func (h *AxisHandler) UpdateAxis(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewAxisIDFromString(chi.URLParam(r, "axisID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req UpdateAxisRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	axis, err := h.manager.UpdateIdentityAxis(r.Context(), id, state.UpdateAxisOptions{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toAxisResponse(axis))
}

// DeleteAxis handles DELETE /axes/{axisID}
func (h *AxisHandler) DeleteAxis(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewAxisIDFromString(chi.URLParam(r, "axisID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.manager.DeleteIdentityAxis(r.Context(), id); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "identity axis deleted"})
}
