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

// ThreadHandler handles thread-related HTTP requests
type ThreadHandler struct {
	manager *state.Manager
	logger  *zap.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(manager *state.Manager, logger *zap.Logger) *ThreadHandler {
	return &ThreadHandler{manager: manager, logger: logger}
}

// CreateThreadRequest is the request body for creating a thread
type CreateThreadRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// RenameThreadRequest is the request body for renaming a thread
type RenameThreadRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// AddReflectionRequest links an existing reflection into the thread
type AddReflectionRequest struct {
	ReflectionID string `json:"reflectionId" validate:"required,uuid"`
}

// ListThreads handles GET /threads
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	snap := h.manager.GetState()
	out := make([]ThreadResponse, 0, len(snap.Threads))
	for _, t := range snap.Threads {
		out = append(out, toThreadResponse(t))
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// GetThread handles GET /threads/{threadID}
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewThreadIDFromString(chi.URLParam(r, "threadID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	thread, err := h.manager.GetThread(id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toThreadResponse(thread))
}

// GetThreadReflections handles GET /threads/{threadID}/reflections,
// returning the attached reflections in the thread's insertion order
func (h *ThreadHandler) GetThreadReflections(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewThreadIDFromString(chi.URLParam(r, "threadID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	reflections, err := h.manager.GetReflectionsByThread(id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toReflectionResponses(reflections))
}

// CreateThread handles POST /threads
func (h *ThreadHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var req CreateThreadRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	thread, err := h.manager.CreateThread(r.Context(), req.Title)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("Thread created", zap.String("id", thread.ID().String()))
	common.RespondJSON(w, http.StatusCreated, toThreadResponse(thread))
}

// RenameThread handles PUT /threads/{threadID}
func (h *ThreadHandler) RenameThread(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewThreadIDFromString(chi.URLParam(r, "threadID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req RenameThreadRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	thread, err := h.manager.RenameThread(r.Context(), id, req.Title)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toThreadResponse(thread))
}

// AddReflection handles POST /threads/{threadID}/reflections. The link is
// written atomically on both sides.
func (h *ThreadHandler) AddReflection(w http.ResponseWriter, r *http.Request) {
	threadID, err := valueobjects.NewThreadIDFromString(chi.URLParam(r, "threadID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	var req AddReflectionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	reflectionID, err := valueobjects.NewReflectionIDFromString(req.ReflectionID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.manager.AddReflectionToThread(r.Context(), reflectionID, threadID); err != nil {
		common.RespondAppError(w, err)
		return
	}

	thread, err := h.manager.GetThread(threadID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toThreadResponse(thread))
}

// DeleteThread handles DELETE /threads/{threadID}
func (h *ThreadHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewThreadIDFromString(chi.URLParam(r, "threadID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.manager.DeleteThread(r.Context(), id); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "thread deleted"})
}
