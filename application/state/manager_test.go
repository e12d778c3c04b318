package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/application/services"
	"mirror-backend/domain/core/valueobjects"
	badgerstore "mirror-backend/infrastructure/persistence/badger"
	pkgerrors "mirror-backend/pkg/errors"
)

func newTestManager(t *testing.T) (*Manager, *badgerstore.Store) {
	t.Helper()

	store, err := badgerstore.NewStore(badgerstore.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	manager := NewManager(store, services.NewCrisisScanner(zap.NewNop()), nil, zap.NewNop(), nil)
	health := manager.Initialize(context.Background())
	require.True(t, health.Ready())

	return manager, store
}

func TestManager_Initialize_Idempotent(t *testing.T) {
	manager, _ := newTestManager(t)

	health := manager.Initialize(context.Background())

	assert.Equal(t, StatusReady, health.Status)
	assert.Empty(t, health.Reason)
}

func TestManager_Initialize_DegradedOnBrokenStore(t *testing.T) {
	store, err := badgerstore.NewStore(badgerstore.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	manager := NewManager(store, nil, nil, zap.NewNop(), nil)
	health := manager.Initialize(context.Background())

	assert.Equal(t, StatusDegraded, health.Status)
	assert.NotEmpty(t, health.Reason)

	// Degraded serves an empty cache but reports its health
	snap := manager.GetState()
	assert.Empty(t, snap.Reflections)
	assert.Equal(t, StatusDegraded, snap.Health.Status)
}

func TestManager_MutationsRejectedWhileLoading(t *testing.T) {
	store, err := badgerstore.NewStore(badgerstore.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	manager := NewManager(store, nil, nil, zap.NewNop(), nil)

	_, err = manager.CreateReflection(context.Background(), "too early", CreateReflectionOptions{})

	assert.True(t, pkgerrors.IsUnavailable(err))
}

func TestManager_CreateReflection_Defaults(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	before := len(manager.GetState().Reflections)

	reflection, err := manager.CreateReflection(ctx, "I feel stuck", CreateReflectionOptions{})

	require.NoError(t, err)
	assert.Len(t, manager.GetState().Reflections, before+1)
	assert.Equal(t, valueobjects.ModalityText, reflection.Modality())
	assert.Equal(t, valueobjects.LayerPrivate, reflection.Layer())
	assert.False(t, reflection.IsPublic())
	assert.True(t, reflection.ThreadID().IsZero())

	// Unthreaded query picks it up
	unthreaded, err := manager.GetReflectionsByThread(valueobjects.ThreadID{})
	require.NoError(t, err)
	require.Len(t, unthreaded, 1)
	assert.True(t, unthreaded[0].ID().Equals(reflection.ID()))
}

func TestManager_CreateReflection_DefaultsFromCurrentContext(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	thread, err := manager.CreateThread(ctx, "Evening pages")
	require.NoError(t, err)
	require.NoError(t, manager.SetCurrentLayer(valueobjects.LayerShared))
	require.NoError(t, manager.SetCurrentThread(thread.ID()))

	reflection, err := manager.CreateReflection(ctx, "Written in context", CreateReflectionOptions{})

	require.NoError(t, err)
	assert.Equal(t, valueobjects.LayerShared, reflection.Layer())
	assert.True(t, reflection.IsPublic()) // shared layer defaults to public
	assert.True(t, reflection.ThreadID().Equals(thread.ID()))
}

func TestManager_CreateReflection_ExplicitOverrides(t *testing.T) {
	manager, _ := newTestManager(t)

	isPublic := false
	reflection, err := manager.CreateReflection(context.Background(), "overridden", CreateReflectionOptions{
		Layer:    valueobjects.LayerShared,
		Modality: valueobjects.ModalityVoice,
		IsPublic: &isPublic,
	})

	require.NoError(t, err)
	assert.Equal(t, valueobjects.LayerShared, reflection.Layer())
	assert.Equal(t, valueobjects.ModalityVoice, reflection.Modality())
	assert.False(t, reflection.IsPublic())
}

func TestManager_UpdateReflection_MissingID(t *testing.T) {
	manager, _ := newTestManager(t)

	content := "updated"
	_, err := manager.UpdateReflection(context.Background(), valueobjects.NewReflectionID(), UpdateReflectionOptions{
		Content: &content,
	})

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestManager_UpdateReflection_PersistsAndNotifies(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	reflection, err := manager.CreateReflection(ctx, "original", CreateReflectionOptions{})
	require.NoError(t, err)

	notified := 0
	unsubscribe := manager.Subscribe(func(Snapshot) { notified++ })
	defer unsubscribe()

	content := "revised"
	updated, err := manager.UpdateReflection(ctx, reflection.ID(), UpdateReflectionOptions{Content: &content})

	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Content().Text())
	assert.Equal(t, 1, notified)

	// Durable before notify: the store already has the new content
	stored, err := store.GetReflection(ctx, reflection.ID())
	require.NoError(t, err)
	assert.Equal(t, "revised", stored.Content().Text())
}

func TestManager_DeleteReflection_NoCascade(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	reflection, err := manager.CreateReflection(ctx, "to be deleted", CreateReflectionOptions{})
	require.NoError(t, err)
	thread, err := manager.CreateThread(ctx, "keeps a dangling id")
	require.NoError(t, err)
	require.NoError(t, manager.AddReflectionToThread(ctx, reflection.ID(), thread.ID()))

	require.NoError(t, manager.DeleteReflection(ctx, reflection.ID()))

	// The thread still lists the id; queries skip the dangling reference
	loadedThread, err := manager.GetThread(thread.ID())
	require.NoError(t, err)
	assert.True(t, loadedThread.Contains(reflection.ID()))

	inThread, err := manager.GetReflectionsByThread(thread.ID())
	require.NoError(t, err)
	assert.Empty(t, inThread)
}

func TestManager_AddReflectionToThread_DualWrite(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	reflection, err := manager.CreateReflection(ctx, "belongs to a thread", CreateReflectionOptions{})
	require.NoError(t, err)
	thread, err := manager.CreateThread(ctx, "holds it")
	require.NoError(t, err)

	require.NoError(t, manager.AddReflectionToThread(ctx, reflection.ID(), thread.ID()))

	// Both sides visible through the manager
	loadedReflection, err := manager.GetReflection(reflection.ID())
	require.NoError(t, err)
	assert.True(t, loadedReflection.ThreadID().Equals(thread.ID()))

	loadedThread, err := manager.GetThread(thread.ID())
	require.NoError(t, err)
	assert.True(t, loadedThread.Contains(reflection.ID()))

	// Exactly once in the list, even after a duplicate attempt
	err = manager.AddReflectionToThread(ctx, reflection.ID(), thread.ID())
	assert.True(t, pkgerrors.IsConflict(err))
	loadedThread, err = manager.GetThread(thread.ID())
	require.NoError(t, err)
	assert.Len(t, loadedThread.ReflectionIDs(), 1)

	// Both sides durable: a fresh manager over the same store agrees
	fresh := NewManager(store, nil, nil, zap.NewNop(), nil)
	require.True(t, fresh.Initialize(ctx).Ready())
	freshReflection, err := fresh.GetReflection(reflection.ID())
	require.NoError(t, err)
	assert.True(t, freshReflection.ThreadID().Equals(thread.ID()))
}

func TestManager_GetReflectionsByThread_InsertionOrder(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	thread, err := manager.CreateThread(ctx, "ordered")
	require.NoError(t, err)

	first, err := manager.CreateReflection(ctx, "first", CreateReflectionOptions{})
	require.NoError(t, err)
	second, err := manager.CreateReflection(ctx, "second", CreateReflectionOptions{})
	require.NoError(t, err)

	// Attach in reverse creation order; thread order wins
	require.NoError(t, manager.AddReflectionToThread(ctx, second.ID(), thread.ID()))
	require.NoError(t, manager.AddReflectionToThread(ctx, first.ID(), thread.ID()))

	inThread, err := manager.GetReflectionsByThread(thread.ID())

	require.NoError(t, err)
	require.Len(t, inThread, 2)
	assert.True(t, inThread[0].ID().Equals(second.ID()))
	assert.True(t, inThread[1].ID().Equals(first.ID()))
}

func TestManager_Subscribe_SnapshotIsImmutable(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	var seen Snapshot
	unsubscribe := manager.Subscribe(func(s Snapshot) { seen = s })
	defer unsubscribe()

	_, err := manager.CreateReflection(ctx, "snapshot source", CreateReflectionOptions{})
	require.NoError(t, err)
	require.Len(t, seen.Reflections, 1)

	// Mutating the snapshot copy must not leak into the manager
	require.NoError(t, seen.Reflections[0].AddTag("tampered"))

	cached, err := manager.GetReflection(seen.Reflections[0].ID())
	require.NoError(t, err)
	assert.Empty(t, cached.GetTags())
}

func TestManager_Subscribe_UnsubscribeDuringNotification(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	var unsubscribe func()
	unsubscribe = manager.Subscribe(func(Snapshot) {
		calls++
		unsubscribe()
	})

	_, err := manager.CreateReflection(ctx, "one", CreateReflectionOptions{})
	require.NoError(t, err)
	_, err = manager.CreateReflection(ctx, "two", CreateReflectionOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestManager_Subscribe_MultipleSubscribers(t *testing.T) {
	manager, _ := newTestManager(t)

	first, second := 0, 0
	defer manager.Subscribe(func(Snapshot) { first++ })()
	defer manager.Subscribe(func(Snapshot) { second++ })()

	_, err := manager.CreateReflection(context.Background(), "broadcast", CreateReflectionOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestManager_ExportClearImport_RoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	reflection, err := manager.CreateReflection(ctx, "survives the round trip", CreateReflectionOptions{Tags: []string{"keep"}})
	require.NoError(t, err)
	thread, err := manager.CreateThread(ctx, "survives too")
	require.NoError(t, err)
	require.NoError(t, manager.AddReflectionToThread(ctx, reflection.ID(), thread.ID()))

	doc, err := manager.ExportAllData(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.ClearAllData(ctx))
	assert.Empty(t, manager.GetState().Reflections)
	assert.Empty(t, manager.GetState().Threads)

	require.NoError(t, manager.ImportData(ctx, doc))

	snap := manager.GetState()
	require.Len(t, snap.Reflections, 1)
	require.Len(t, snap.Threads, 1)
	restored := snap.Reflections[0]
	assert.True(t, restored.ID().Equals(reflection.ID()))
	assert.Equal(t, reflection.Content().Text(), restored.Content().Text())
	assert.Equal(t, []string{"keep"}, restored.GetTags())
	assert.True(t, restored.ThreadID().Equals(thread.ID()))
	assert.True(t, snap.Threads[0].Contains(reflection.ID()))
}

func TestManager_ImportData_RejectsInvalidDocument(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateReflection(ctx, "still here after bad import", CreateReflectionOptions{})
	require.NoError(t, err)

	err = manager.ImportData(ctx, nil)

	assert.True(t, pkgerrors.IsImportInvalid(err))
	assert.Len(t, manager.GetState().Reflections, 1)
}

func TestManager_CrisisScan_FlipsCrisisMode(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.CreateReflection(context.Background(), "some days I just want to die", CreateReflectionOptions{})

	// The create itself never fails or waits on the scan
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return manager.GetState().CrisisMode
	}, time.Second, 5*time.Millisecond)
}

func TestManager_CrisisScan_NoFalsePositive(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.CreateReflection(context.Background(), "today was a calm, ordinary day", CreateReflectionOptions{})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, manager.GetState().CrisisMode)
}

func TestManager_SetCurrentThread_UnknownID(t *testing.T) {
	manager, _ := newTestManager(t)

	err := manager.SetCurrentThread(valueobjects.NewThreadID())

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestManager_Subscribe_SnapshotsDeliveredInCommitOrder(t *testing.T) {
	manager, _ := newTestManager(t)

	var mu sync.Mutex
	var counts []int
	unsubscribe := manager.Subscribe(func(snap Snapshot) {
		mu.Lock()
		counts = append(counts, len(snap.Reflections))
		mu.Unlock()
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := manager.CreateReflection(context.Background(), "entry", CreateReflectionOptions{})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, counts)
	for i := 1; i < len(counts); i++ {
		assert.GreaterOrEqual(t, counts[i], counts[i-1],
			"subscriber observed state moving backwards")
	}
	assert.Equal(t, 40, counts[len(counts)-1])
}
