// Package handlers contains the REST request handlers. Each handler parses
// and validates its DTO, calls into the state manager, and maps the result
// or error onto the wire.
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

// maxBodyBytes caps ordinary request bodies
const maxBodyBytes = 1 << 20 // 1 MiB

// ReflectionHandler handles reflection-related HTTP requests
type ReflectionHandler struct {
	manager *state.Manager
	logger  *zap.Logger
}

// NewReflectionHandler creates a new reflection handler
func NewReflectionHandler(manager *state.Manager, logger *zap.Logger) *ReflectionHandler {
	return &ReflectionHandler{manager: manager, logger: logger}
}

// CreateReflectionRequest is the request body for creating a reflection.
// Omitted fields default from the current UI context.
type CreateReflectionRequest struct {
	Content  string   `json:"content" validate:"required"`
	Layer    string   `json:"layer,omitempty" validate:"omitempty,oneof=private shared experimental"`
	Modality string   `json:"modality,omitempty" validate:"omitempty,oneof=text voice video document"`
	ThreadID string   `json:"threadId,omitempty" validate:"omitempty,uuid"`
	AxisID   string   `json:"axisId,omitempty" validate:"omitempty,uuid"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	IsPublic *bool    `json:"isPublic,omitempty"`
}

// UpdateReflectionRequest is the request body for partial updates
type UpdateReflectionRequest struct {
	Content  *string   `json:"content,omitempty"`
	Layer    *string   `json:"layer,omitempty" validate:"omitempty,oneof=private shared experimental"`
	Modality *string   `json:"modality,omitempty" validate:"omitempty,oneof=text voice video document"`
	AxisID   *string   `json:"axisId,omitempty" validate:"omitempty,uuid"`
	Tags     *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	IsPublic *bool     `json:"isPublic,omitempty"`
}

// ListReflections handles GET /reflections. An explicit empty thread query
// (?thread=) selects the unthreaded reflections.
func (h *ReflectionHandler) ListReflections(w http.ResponseWriter, r *http.Request) {
	if threadParam, ok := r.URL.Query()["thread"]; ok {
		threadID := valueobjects.ThreadID{}
		if len(threadParam) > 0 && threadParam[0] != "" {
			parsed, err := valueobjects.NewThreadIDFromString(threadParam[0])
			if err != nil {
				common.RespondAppError(w, err)
				return
			}
			threadID = parsed
		}
		reflections, err := h.manager.GetReflectionsByThread(threadID)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, toReflectionResponses(reflections))
		return
	}

	common.RespondJSON(w, http.StatusOK, toReflectionResponses(h.manager.GetState().Reflections))
}

// GetReflection handles GET /reflections/{reflectionID}
func (h *ReflectionHandler) GetReflection(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewReflectionIDFromString(chi.URLParam(r, "reflectionID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	reflection, err := h.manager.GetReflection(id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toReflectionResponse(reflection))
}

// CreateReflection handles POST /reflections
func (h *ReflectionHandler) CreateReflection(w http.ResponseWriter, r *http.Request) {
	var req CreateReflectionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	opts := state.CreateReflectionOptions{
		Layer:    valueobjects.Layer(req.Layer),
		Modality: valueobjects.Modality(req.Modality),
		Tags:     req.Tags,
		IsPublic: req.IsPublic,
	}
	if req.ThreadID != "" {
		threadID, err := valueobjects.NewThreadIDFromString(req.ThreadID)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		opts.ThreadID = threadID
	}
	if req.AxisID != "" {
		axisID, err := valueobjects.NewAxisIDFromString(req.AxisID)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		opts.AxisID = axisID
	}

	reflection, err := h.manager.CreateReflection(r.Context(), req.Content, opts)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("Reflection created", zap.String("id", reflection.ID().String()))
	common.RespondJSON(w, http.StatusCreated, toReflectionResponse(reflection))
}

// UpdateReflection handles PUT /reflections/{reflectionID}
func (h *ReflectionHandler) UpdateReflection(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewReflectionIDFromString(chi.URLParam(r, "reflectionID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req UpdateReflectionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	opts := state.UpdateReflectionOptions{
		Content:  req.Content,
		Tags:     req.Tags,
		IsPublic: req.IsPublic,
	}
	if req.Layer != nil {
		layer, err := valueobjects.NewLayer(*req.Layer)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		opts.Layer = &layer
	}
	if req.Modality != nil {
		modality, err := valueobjects.NewModality(*req.Modality)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		opts.Modality = &modality
	}
	if req.AxisID != nil {
		axisID := valueobjects.AxisID{}
		if *req.AxisID != "" {
			axisID, err = valueobjects.NewAxisIDFromString(*req.AxisID)
			if err != nil {
				common.RespondAppError(w, err)
				return
			}
		}
		opts.AxisID = &axisID
	}

	reflection, err := h.manager.UpdateReflection(r.Context(), id, opts)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toReflectionResponse(reflection))
}

// DeleteReflection handles DELETE /reflections/{reflectionID}
func (h *ReflectionHandler) DeleteReflection(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewReflectionIDFromString(chi.URLParam(r, "reflectionID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.manager.DeleteReflection(r.Context(), id); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "reflection deleted"})
}
