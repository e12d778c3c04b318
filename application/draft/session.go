package draft

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/domain/config"
	"mirror-backend/pkg/debounce"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/observability"
)

// recoverySlotPrefix namespaces per-session recovery slots in the slot store
const recoverySlotPrefix = "mirror_recovery_"

// SaveFunc persists the session's content durably. Supplied by the caller;
// usually it routes through the state manager.
type SaveFunc func(ctx context.Context, content string) error

// Session is the editing lifecycle for one editable field: an undo/redo
// history, a crash-recovery snapshot, and a debounced autosave, created
// when the field is opened and discarded when it closes.
type Session struct {
	id       string
	history  *History[string]
	recovery *Recovery
	autosave *debounce.Debouncer
	save     SaveFunc
	logger   *zap.Logger
	metrics  *observability.Collector
}

// NewSession opens a session seeded with the field's current content
func NewSession(
	id string,
	initial string,
	cfg *config.DomainConfig,
	slots ports.SlotStore,
	save SaveFunc,
	logger *zap.Logger,
	metrics *observability.Collector,
) (*Session, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("session id cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	history, err := NewHistory(initial, cfg.UndoHistoryDepth, cfg.UndoDebounceWindow,
		func(a, b string) bool { return a == b })
	if err != nil {
		return nil, err
	}

	return &Session{
		id:       id,
		history:  history,
		recovery: NewRecovery(slots, recoverySlotPrefix+id, cfg.SnapshotDebounceWindow, logger, metrics),
		autosave: debounce.New(cfg.AutosaveWindow),
		save:     save,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// ID returns the session's owner key
func (s *Session) ID() string {
	return s.id
}

// Input records a keystroke batch: coalesced into the undo history,
// snapshotted for recovery, and queued for autosave
func (s *Session) Input(text string) {
	s.history.Set(text, false)
	s.recovery.SaveSnapshot(text, map[string]string{"session": s.id})
	s.scheduleAutosave()
}

// Checkpoint records a deliberate edit boundary (paste, format, blur): the
// prior content becomes an immediate undo entry
func (s *Session) Checkpoint(text string) {
	s.history.Set(text, true)
	s.recovery.SaveSnapshot(text, map[string]string{"session": s.id})
	s.scheduleAutosave()
}

// Undo steps the content back one history entry and returns the result
func (s *Session) Undo() string {
	s.history.Undo()
	if s.metrics != nil {
		s.metrics.UndoOperations.WithLabelValues("undo").Inc()
	}
	s.scheduleAutosave()
	return s.history.Present()
}

// Redo steps the content forward one history entry and returns the result
func (s *Session) Redo() string {
	s.history.Redo()
	if s.metrics != nil {
		s.metrics.UndoOperations.WithLabelValues("redo").Inc()
	}
	s.scheduleAutosave()
	return s.history.Present()
}

// Content returns the current content
func (s *Session) Content() string {
	return s.history.Present()
}

// CanUndo reports whether an undo would change the content
func (s *Session) CanUndo() bool {
	return s.history.CanUndo()
}

// CanRedo reports whether a redo would change the content
func (s *Session) CanRedo() bool {
	return s.history.CanRedo()
}

// RecoveryOffer returns the stored crash-recovery snapshot, if any. The
// content is offered to the user, never auto-applied.
func (s *Session) RecoveryOffer(ctx context.Context) *Snapshot {
	return s.recovery.GetSnapshot(ctx)
}

// AcceptRecovery adopts the recovered content as a checkpointed edit, so
// the pre-recovery content stays reachable through undo
func (s *Session) AcceptRecovery(ctx context.Context) (string, bool) {
	snap := s.recovery.GetSnapshot(ctx)
	if snap == nil {
		return "", false
	}
	s.history.Set(snap.Content, true)
	return snap.Content, true
}

// Save persists the current content immediately and clears the recovery
// snapshot on success
func (s *Session) Save(ctx context.Context) error {
	s.autosave.Cancel()

	if s.save == nil {
		return nil
	}
	if err := s.save(ctx, s.history.Present()); err != nil {
		return err
	}

	s.recovery.ClearSnapshot(ctx)
	return nil
}

// Close tears the session down. Pending autosave is cancelled; the recovery
// snapshot is left in place unless the content was saved, so a close
// without save still offers recovery on reopen.
func (s *Session) Close() {
	s.autosave.Cancel()
	s.recovery.Flush()
	s.history.Clear()
}

// scheduleAutosave queues a debounced durable save of the present content
func (s *Session) scheduleAutosave() {
	if s.save == nil {
		return
	}
	s.autosave.Do(func() {
		content := s.history.Present()
		if err := s.save(context.Background(), content); err != nil {
			s.logger.Warn("Autosave failed",
				zap.String("session", s.id),
				zap.Error(err))
			return
		}
		s.recovery.ClearSnapshot(context.Background())
	})
}

// Sessions is the registry of open editing sessions, keyed by owner
type Sessions struct {
	limits  *config.Limits
	slots   ports.SlotStore
	logger  *zap.Logger
	metrics *observability.Collector

	mu   sync.Mutex
	open map[string]*Session
}

// NewSessions creates an empty registry
func NewSessions(limits *config.Limits, slots ports.SlotStore, logger *zap.Logger, metrics *observability.Collector) *Sessions {
	if limits == nil {
		limits = config.NewLimits(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		limits:  limits,
		slots:   slots,
		logger:  logger,
		metrics: metrics,
		open:    map[string]*Session{},
	}
}

// Open creates a session for the owner, or returns the one already open
func (r *Sessions) Open(id, initial string, save SaveFunc) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.open[id]; ok {
		return existing, nil
	}

	session, err := NewSession(id, initial, r.limits.Current(), r.slots, save, r.logger, r.metrics)
	if err != nil {
		return nil, err
	}
	r.open[id] = session
	return session, nil
}

// Get returns the open session for the owner
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.open[id]
	return session, ok
}

// Close discards the owner's session. Closing a missing owner is a no-op.
func (r *Sessions) Close(id string) {
	r.mu.Lock()
	session, ok := r.open[id]
	delete(r.open, id)
	r.mu.Unlock()

	if ok {
		session.Close()
	}
}

// CloseAll discards every open session, for shutdown
func (r *Sessions) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.open))
	for _, s := range r.open {
		sessions = append(sessions, s)
	}
	r.open = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
