package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/application/ports"
	badgerstore "mirror-backend/infrastructure/persistence/badger"
)

func newTestSlots(t *testing.T) *badgerstore.Store {
	t.Helper()
	store, err := badgerstore.NewStore(badgerstore.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRecovery(t *testing.T, slots ports.SlotStore) *Recovery {
	t.Helper()
	return NewRecovery(slots, "mirror_recovery_test", 5*time.Millisecond, zap.NewNop(), nil)
}

func TestRecovery_SaveHasGetClearCycle(t *testing.T) {
	recovery := newTestRecovery(t, newTestSlots(t))
	ctx := context.Background()

	assert.False(t, recovery.HasRecovery(ctx))
	assert.Nil(t, recovery.GetSnapshot(ctx))

	recovery.SaveSnapshot("half-typed thought", map[string]string{"field": "content"})
	recovery.Flush()

	require.True(t, recovery.HasRecovery(ctx))
	snap := recovery.GetSnapshot(ctx)
	require.NotNil(t, snap)
	assert.Equal(t, "half-typed thought", snap.Content)
	assert.Equal(t, "content", snap.Metadata["field"])
	assert.False(t, snap.Timestamp.IsZero())

	recovery.ClearSnapshot(ctx)

	assert.False(t, recovery.HasRecovery(ctx))
	assert.Nil(t, recovery.GetSnapshot(ctx))
}

func TestRecovery_SingleSlotOverwrites(t *testing.T) {
	recovery := newTestRecovery(t, newTestSlots(t))
	ctx := context.Background()

	recovery.SaveSnapshot("first", nil)
	recovery.Flush()
	recovery.SaveSnapshot("second", nil)
	recovery.Flush()

	snap := recovery.GetSnapshot(ctx)
	require.NotNil(t, snap)
	assert.Equal(t, "second", snap.Content)
}

func TestRecovery_RapidSavesCoalesce(t *testing.T) {
	recovery := newTestRecovery(t, newTestSlots(t))
	ctx := context.Background()

	for _, text := range []string{"a", "ab", "abc"} {
		recovery.SaveSnapshot(text, nil)
	}

	assert.Eventually(t, func() bool {
		snap := recovery.GetSnapshot(ctx)
		return snap != nil && snap.Content == "abc"
	}, time.Second, 2*time.Millisecond)
}

func TestRecovery_RecoveryAge(t *testing.T) {
	recovery := newTestRecovery(t, newTestSlots(t))
	ctx := context.Background()

	_, ok := recovery.RecoveryAge(ctx)
	assert.False(t, ok)

	recovery.SaveSnapshot("aging", nil)
	recovery.Flush()

	age, ok := recovery.RecoveryAge(ctx)
	require.True(t, ok)
	assert.GreaterOrEqual(t, age, time.Duration(0))
	assert.Less(t, age, time.Minute)
}

func TestRecovery_CorruptSnapshotReadsAsAbsent(t *testing.T) {
	slots := newTestSlots(t)
	recovery := newTestRecovery(t, slots)
	ctx := context.Background()

	require.NoError(t, slots.PutSlot(ctx, "mirror_recovery_test", []byte("not json")))

	assert.Nil(t, recovery.GetSnapshot(ctx))
	assert.False(t, recovery.HasRecovery(ctx))
}

func TestRecovery_EncryptedRoundTrip(t *testing.T) {
	slots := newTestSlots(t)
	encrypted, err := badgerstore.NewEncryptedSlots(slots, "session key")
	require.NoError(t, err)
	recovery := newTestRecovery(t, encrypted)
	ctx := context.Background()

	recovery.SaveSnapshot("private thought", nil)
	recovery.Flush()

	snap := recovery.GetSnapshot(ctx)
	require.NotNil(t, snap)
	assert.Equal(t, "private thought", snap.Content)

	// Reading with a different key offers nothing rather than failing
	otherKey, err := badgerstore.NewEncryptedSlots(slots, "wrong key")
	require.NoError(t, err)
	other := newTestRecovery(t, otherKey)
	assert.Nil(t, other.GetSnapshot(ctx))
}
