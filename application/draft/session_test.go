package draft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/domain/config"
)

// sessionConfig shortens the debounce windows so tests stay fast
func sessionConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.UndoDebounceWindow = 5 * time.Millisecond
	cfg.SnapshotDebounceWindow = 5 * time.Millisecond
	cfg.AutosaveWindow = 10 * time.Millisecond
	return cfg
}

// recordingSaver counts saves and keeps the last content
type recordingSaver struct {
	mu    sync.Mutex
	saves []string
	err   error
}

func (r *recordingSaver) save(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, content)
	return nil
}

func (r *recordingSaver) last() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return "", 0
	}
	return r.saves[len(r.saves)-1], len(r.saves)
}

func TestSession_InputUndoRedo(t *testing.T) {
	session, err := NewSession("reflection-1", "saved text", sessionConfig(), newTestSlots(t), nil, zap.NewNop(), nil)
	require.NoError(t, err)
	defer session.Close()

	session.Input("saved text plus edits")
	assert.Equal(t, "saved text plus edits", session.Content())
	assert.True(t, session.CanUndo())

	assert.Equal(t, "saved text", session.Undo())
	assert.True(t, session.CanRedo())
	assert.Equal(t, "saved text plus edits", session.Redo())
}

func TestSession_AutosavePersistsAfterQuietWindow(t *testing.T) {
	saver := &recordingSaver{}
	session, err := NewSession("reflection-2", "", sessionConfig(), newTestSlots(t), saver.save, zap.NewNop(), nil)
	require.NoError(t, err)
	defer session.Close()

	session.Input("typed and walked away")

	assert.Eventually(t, func() bool {
		content, n := saver.last()
		return n == 1 && content == "typed and walked away"
	}, time.Second, 2*time.Millisecond)
}

func TestSession_SaveClearsRecovery(t *testing.T) {
	saver := &recordingSaver{}
	session, err := NewSession("reflection-3", "", sessionConfig(), newTestSlots(t), saver.save, zap.NewNop(), nil)
	require.NoError(t, err)
	defer session.Close()
	ctx := context.Background()

	session.Input("work in progress")
	session.recovery.Flush()
	require.NotNil(t, session.RecoveryOffer(ctx))

	require.NoError(t, session.Save(ctx))

	content, _ := saver.last()
	assert.Equal(t, "work in progress", content)
	assert.Nil(t, session.RecoveryOffer(ctx))
}

func TestSession_SaveFailureKeepsRecovery(t *testing.T) {
	saver := &recordingSaver{err: assert.AnError}
	session, err := NewSession("reflection-4", "", sessionConfig(), newTestSlots(t), saver.save, zap.NewNop(), nil)
	require.NoError(t, err)
	defer session.Close()
	ctx := context.Background()

	session.Input("must not be lost")
	session.recovery.Flush()

	assert.Error(t, session.Save(ctx))
	assert.NotNil(t, session.RecoveryOffer(ctx))
}

func TestSession_RecoveryOfferedOnReopen(t *testing.T) {
	slots := newTestSlots(t)
	cfg := sessionConfig()
	ctx := context.Background()

	first, err := NewSession("reflection-5", "", cfg, slots, nil, zap.NewNop(), nil)
	require.NoError(t, err)
	first.Input("crashed mid-sentence")
	first.Close() // close without save keeps the snapshot

	reopened, err := NewSession("reflection-5", "", cfg, slots, nil, zap.NewNop(), nil)
	require.NoError(t, err)
	defer reopened.Close()

	offer := reopened.RecoveryOffer(ctx)
	require.NotNil(t, offer)
	assert.Equal(t, "crashed mid-sentence", offer.Content)

	// Never auto-applied: content is still the opening value
	assert.Equal(t, "", reopened.Content())

	accepted, ok := reopened.AcceptRecovery(ctx)
	require.True(t, ok)
	assert.Equal(t, "crashed mid-sentence", accepted)
	assert.Equal(t, "crashed mid-sentence", reopened.Content())

	// Accepting is undoable
	assert.Equal(t, "", reopened.Undo())
}

func TestSessions_OpenIsIdempotentPerOwner(t *testing.T) {
	registry := NewSessions(config.NewLimits(sessionConfig()), newTestSlots(t), zap.NewNop(), nil)
	defer registry.CloseAll()

	first, err := registry.Open("owner", "initial", nil)
	require.NoError(t, err)
	second, err := registry.Open("owner", "different seed", nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestSessions_CloseDiscards(t *testing.T) {
	registry := NewSessions(config.NewLimits(sessionConfig()), newTestSlots(t), zap.NewNop(), nil)

	_, err := registry.Open("owner", "", nil)
	require.NoError(t, err)

	registry.Close("owner")
	registry.Close("owner") // no-op

	_, ok := registry.Get("owner")
	assert.False(t, ok)
}
