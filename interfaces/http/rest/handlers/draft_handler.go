package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mirror-backend/application/draft"
	"mirror-backend/application/state"
	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/pkg/common"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/utils"
)

// DraftHandler exposes per-reflection editing sessions: keystrokes feed an
// undo history and a crash-recovery snapshot, saves route back through the
// state manager.
type DraftHandler struct {
	manager  *state.Manager
	sessions *draft.Sessions
	logger   *zap.Logger
}

// NewDraftHandler creates a draft handler
func NewDraftHandler(manager *state.Manager, sessions *draft.Sessions, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{
		manager:  manager,
		sessions: sessions,
		logger:   logger,
	}
}

// DraftResponse is the wire shape of a session's current editing state
type DraftResponse struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	CanUndo  bool           `json:"canUndo"`
	CanRedo  bool           `json:"canRedo"`
	Recovery *DraftRecovery `json:"recovery,omitempty"`
}

// DraftRecovery describes an unsaved snapshot the client may offer to restore
type DraftRecovery struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *DraftHandler) respondSession(w http.ResponseWriter, s *draft.Session, offer *draft.Snapshot) {
	resp := DraftResponse{
		ID:      s.ID(),
		Content: s.Content(),
		CanUndo: s.CanUndo(),
		CanRedo: s.CanRedo(),
	}
	if offer != nil {
		resp.Recovery = &DraftRecovery{Content: offer.Content, Timestamp: offer.Timestamp}
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

func (h *DraftHandler) session(w http.ResponseWriter, r *http.Request) (*draft.Session, bool) {
	id := chi.URLParam(r, "reflectionID")
	s, ok := h.sessions.Get(id)
	if !ok {
		common.RespondAppError(w, pkgerrors.NewNotFoundError("draft session"))
		return nil, false
	}
	return s, true
}

// Open handles POST /api/drafts/{reflectionID}. It seeds the session with the
// reflection's stored content and reports any recovery snapshot without
// applying it.
func (h *DraftHandler) Open(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "reflectionID")

	id, err := valueobjects.NewReflectionIDFromString(rawID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	reflection, err := h.manager.GetReflection(id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	save := func(ctx context.Context, content string) error {
		_, updateErr := h.manager.UpdateReflection(ctx, id, state.UpdateReflectionOptions{Content: &content})
		return updateErr
	}

	session, err := h.sessions.Open(rawID, reflection.Content().Text(), save)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("draft session opened", zap.String("reflection_id", rawID))
	h.respondSession(w, session, session.RecoveryOffer(r.Context()))
}

// DraftInputRequest carries one edit from the client
type DraftInputRequest struct {
	Content    string `json:"content"`
	Checkpoint bool   `json:"checkpoint,omitempty"`
}

// Input handles POST /api/drafts/{reflectionID}/input
func (h *DraftHandler) Input(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req DraftInputRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	if req.Checkpoint {
		s.Checkpoint(req.Content)
	} else {
		s.Input(req.Content)
	}
	h.respondSession(w, s, nil)
}

// Undo handles POST /api/drafts/{reflectionID}/undo
func (h *DraftHandler) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Undo()
	h.respondSession(w, s, nil)
}

// Redo handles POST /api/drafts/{reflectionID}/redo
func (h *DraftHandler) Redo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Redo()
	h.respondSession(w, s, nil)
}

// Recovery handles GET /api/drafts/{reflectionID}/recovery
func (h *DraftHandler) Recovery(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondSession(w, s, s.RecoveryOffer(r.Context()))
}

// AcceptRecovery handles POST /api/drafts/{reflectionID}/recovery/accept
func (h *DraftHandler) AcceptRecovery(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, accepted := s.AcceptRecovery(r.Context()); !accepted {
		common.RespondAppError(w, pkgerrors.NewNotFoundError("recovery snapshot"))
		return
	}
	h.respondSession(w, s, nil)
}

// Save handles POST /api/drafts/{reflectionID}/save
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Save(r.Context()); err != nil {
		common.RespondAppError(w, err)
		return
	}
	h.respondSession(w, s, nil)
}

// Close handles DELETE /api/drafts/{reflectionID}
func (h *DraftHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reflectionID")
	h.sessions.Close(id)
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}
