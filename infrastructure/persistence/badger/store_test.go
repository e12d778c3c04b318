package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	pkgerrors "mirror-backend/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestReflection(t *testing.T, text string) *entities.Reflection {
	t.Helper()
	content, err := valueobjects.NewReflectionContent(text)
	require.NoError(t, err)
	reflection, err := entities.NewReflection(content, valueobjects.LayerPrivate, valueobjects.ModalityText)
	require.NoError(t, err)
	return reflection
}

func TestStore_ReflectionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reflection := newTestReflection(t, "Today I noticed something about myself")
	require.NoError(t, store.AddReflection(ctx, reflection))

	// Act - read back
	loaded, err := store.GetReflection(ctx, reflection.ID())
	require.NoError(t, err)
	assert.True(t, loaded.ID().Equals(reflection.ID()))
	assert.Equal(t, reflection.Content().Text(), loaded.Content().Text())
	assert.Equal(t, valueobjects.LayerPrivate, loaded.Layer())
	assert.False(t, loaded.IsPublic())

	// Act - update
	content, err := valueobjects.NewReflectionContent("Revised after sleeping on it")
	require.NoError(t, err)
	require.NoError(t, loaded.UpdateContent(content))
	require.NoError(t, store.UpdateReflection(ctx, loaded))

	reloaded, err := store.GetReflection(ctx, reflection.ID())
	require.NoError(t, err)
	assert.Equal(t, "Revised after sleeping on it", reloaded.Content().Text())

	// Act - delete
	require.NoError(t, store.DeleteReflection(ctx, reflection.ID()))
	_, err = store.GetReflection(ctx, reflection.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_AddReflection_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reflection := newTestReflection(t, "first")
	require.NoError(t, store.AddReflection(ctx, reflection))

	err := store.AddReflection(ctx, reflection)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestStore_UpdateReflection_MissingID(t *testing.T) {
	store := newTestStore(t)

	reflection := newTestReflection(t, "never persisted")

	err := store.UpdateReflection(context.Background(), reflection)

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_DeleteReflection_MissingID_NoOp(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteReflection(context.Background(), valueobjects.NewReflectionID())

	assert.NoError(t, err)
}

func TestStore_Reflections_OrderedByCreation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := newTestReflection(t, "first entry")
	second := newTestReflection(t, "second entry")
	third := newTestReflection(t, "third entry")
	for _, r := range []*entities.Reflection{third, first, second} {
		require.NoError(t, store.AddReflection(ctx, r))
	}

	all, err := store.Reflections(ctx)

	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt().Before(all[i-1].CreatedAt()))
	}
}

func TestStore_Reflections_EmptyIsNotNil(t *testing.T) {
	store := newTestStore(t)

	all, err := store.Reflections(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestStore_ThreadLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	thread, err := entities.NewThread("Career doubts")
	require.NoError(t, err)
	require.NoError(t, store.AddThread(ctx, thread))

	loaded, err := store.GetThread(ctx, thread.ID())
	require.NoError(t, err)
	assert.Equal(t, "Career doubts", loaded.Title())
	assert.Empty(t, loaded.ReflectionIDs())

	require.NoError(t, loaded.Rename("Career growth"))
	require.NoError(t, store.UpdateThread(ctx, loaded))

	reloaded, err := store.GetThread(ctx, thread.ID())
	require.NoError(t, err)
	assert.Equal(t, "Career growth", reloaded.Title())

	require.NoError(t, store.DeleteThread(ctx, thread.ID()))
	_, err = store.GetThread(ctx, thread.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_Thread_PreservesReflectionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	thread, err := entities.NewThread("Ordered")
	require.NoError(t, err)

	ids := []valueobjects.ReflectionID{
		valueobjects.NewReflectionID(),
		valueobjects.NewReflectionID(),
		valueobjects.NewReflectionID(),
	}
	for _, id := range ids {
		require.NoError(t, thread.AddReflection(id))
	}
	require.NoError(t, store.AddThread(ctx, thread))

	loaded, err := store.GetThread(ctx, thread.ID())

	require.NoError(t, err)
	require.Len(t, loaded.ReflectionIDs(), 3)
	for i, id := range loaded.ReflectionIDs() {
		assert.True(t, id.Equals(ids[i]))
	}
}

func TestStore_AxisLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	axis, err := entities.NewIdentityAxis("Professional self", "#3366FF")
	require.NoError(t, err)
	require.NoError(t, store.AddAxis(ctx, axis))

	loaded, err := store.GetAxis(ctx, axis.ID())
	require.NoError(t, err)
	assert.Equal(t, "Professional self", loaded.Name())
	assert.Equal(t, "#3366FF", loaded.Color())

	err = store.UpdateAxis(ctx, loaded)
	assert.NoError(t, err)

	require.NoError(t, store.DeleteAxis(ctx, axis.ID()))
	_, err = store.GetAxis(ctx, axis.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestStore_Settings_CreatedWithDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.Settings(ctx)

	require.NoError(t, err)
	assert.Equal(t, entities.ThemeSystem, settings.Theme())
	assert.Equal(t, valueobjects.LayerPrivate, settings.DefaultLayer())
	assert.Equal(t, valueobjects.ModalityText, settings.DefaultModality())
}

func TestStore_Settings_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.Settings(ctx)
	require.NoError(t, err)
	require.NoError(t, settings.SetTheme(entities.ThemeDark))
	settings.SetAccessibility(true, false)
	require.NoError(t, store.UpdateSettings(ctx, settings))

	loaded, err := store.Settings(ctx)

	require.NoError(t, err)
	assert.Equal(t, entities.ThemeDark, loaded.Theme())
	assert.True(t, loaded.ReducedMotion())
	assert.False(t, loaded.HighContrast())
}

func TestStore_ExportImport_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reflection := newTestReflection(t, "exported reflection")
	require.NoError(t, store.AddReflection(ctx, reflection))

	thread, err := entities.NewThread("exported thread")
	require.NoError(t, err)
	require.NoError(t, thread.AddReflection(reflection.ID()))
	require.NoError(t, store.AddThread(ctx, thread))

	axis, err := entities.NewIdentityAxis("exported axis", "")
	require.NoError(t, err)
	require.NoError(t, store.AddAxis(ctx, axis))

	doc, err := store.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ports.ExportDocumentVersion, doc.Version)
	require.Len(t, doc.Reflections, 1)
	require.Len(t, doc.Threads, 1)
	require.Len(t, doc.Axes, 1)

	// Import into a fresh store and compare
	other := newTestStore(t)
	require.NoError(t, other.ImportAll(ctx, doc))

	reimported, err := other.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Reflections, reimported.Reflections)
	assert.Equal(t, doc.Threads, reimported.Threads)
	assert.Equal(t, doc.Axes, reimported.Axes)
}

func TestStore_ImportAll_ReplacesExistingData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale := newTestReflection(t, "pre-import data")
	require.NoError(t, store.AddReflection(ctx, stale))

	incoming := newTestReflection(t, "imported data")
	doc := &ports.ExportDocument{
		Version:     ports.ExportDocumentVersion,
		Reflections: []ports.ReflectionRecord{recordFromReflection(incoming)},
	}

	require.NoError(t, store.ImportAll(ctx, doc))

	all, err := store.Reflections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].ID().Equals(incoming.ID()))
}

func TestStore_ImportAll_RejectsInvalidDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	existing := newTestReflection(t, "must survive a bad import")
	require.NoError(t, store.AddReflection(ctx, existing))

	tests := []struct {
		name string
		doc  *ports.ExportDocument
	}{
		{name: "nil document", doc: nil},
		{name: "wrong version", doc: &ports.ExportDocument{Version: 2}},
		{
			name: "malformed record",
			doc: &ports.ExportDocument{
				Version: ports.ExportDocumentVersion,
				Reflections: []ports.ReflectionRecord{
					{ID: "not-a-uuid", Content: "x", Layer: "private", Modality: "text"},
				},
			},
		},
		{
			name: "unknown layer",
			doc: &ports.ExportDocument{
				Version: ports.ExportDocumentVersion,
				Reflections: []ports.ReflectionRecord{
					recordWithLayer(newTestReflection(t, "x"), "secret"),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ImportAll(ctx, tt.doc)
			assert.True(t, pkgerrors.IsImportInvalid(err))

			// Existing data untouched
			all, err := store.Reflections(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.True(t, all[0].ID().Equals(existing.ID()))
		})
	}
}

func recordWithLayer(r *entities.Reflection, layer string) ports.ReflectionRecord {
	rec := recordFromReflection(r)
	rec.Layer = layer
	return rec
}

func TestStore_ClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddReflection(ctx, newTestReflection(t, "gone soon")))
	thread, err := entities.NewThread("gone soon")
	require.NoError(t, err)
	require.NoError(t, store.AddThread(ctx, thread))
	require.NoError(t, store.PutSlot(ctx, "mirror_backup_100", []byte("kept")))

	require.NoError(t, store.ClearAll(ctx))

	reflections, err := store.Reflections(ctx)
	require.NoError(t, err)
	assert.Empty(t, reflections)

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)

	// Slots survive a clear
	value, ok, err := store.GetSlot(ctx, "mirror_backup_100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("kept"), value)
}

func TestUnitOfWork_CommitsAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reflection := newTestReflection(t, "threaded entry")
	require.NoError(t, store.AddReflection(ctx, reflection))
	thread, err := entities.NewThread("holds entries")
	require.NoError(t, err)
	require.NoError(t, store.AddThread(ctx, thread))

	reflection.AssignToThread(thread.ID())
	require.NoError(t, thread.AddReflection(reflection.ID()))

	uow, err := store.BeginUnitOfWork(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.StageReflection(reflection))
	require.NoError(t, uow.StageThread(thread))
	require.NoError(t, uow.Commit(ctx))

	loadedReflection, err := store.GetReflection(ctx, reflection.ID())
	require.NoError(t, err)
	assert.True(t, loadedReflection.ThreadID().Equals(thread.ID()))

	loadedThread, err := store.GetThread(ctx, thread.ID())
	require.NoError(t, err)
	assert.True(t, loadedThread.Contains(reflection.ID()))
}

func TestUnitOfWork_RollbackDiscardsStagedWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reflection := newTestReflection(t, "never committed")

	uow, err := store.BeginUnitOfWork(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.StageReflection(reflection))
	require.NoError(t, uow.Rollback())

	_, err = store.GetReflection(ctx, reflection.ID())
	assert.True(t, pkgerrors.IsNotFound(err))

	// Staging after rollback is refused
	assert.Error(t, uow.StageReflection(reflection))
}

func TestStore_Slots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetSlot(ctx, "mirror_recovery")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutSlot(ctx, "mirror_recovery", []byte("draft text")))
	require.NoError(t, store.PutSlot(ctx, "mirror_backup_100", []byte("a")))
	require.NoError(t, store.PutSlot(ctx, "mirror_backup_200", []byte("b")))

	value, ok, err := store.GetSlot(ctx, "mirror_recovery")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("draft text"), value)

	backups, err := store.ListSlots(ctx, "mirror_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"mirror_backup_100", "mirror_backup_200"}, backups)

	require.NoError(t, store.DeleteSlot(ctx, "mirror_recovery"))
	require.NoError(t, store.DeleteSlot(ctx, "mirror_recovery")) // no-op
	_, ok, err = store.GetSlot(ctx, "mirror_recovery")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptedSlots_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enc, err := NewEncryptedSlots(store, "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, enc.PutSlot(ctx, "mirror_recovery", []byte("private draft")))

	// Plain reads see only ciphertext
	raw, ok, err := store.GetSlot(ctx, "mirror_recovery")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, []byte("private draft"), raw)

	value, ok, err := enc.GetSlot(ctx, "mirror_recovery")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("private draft"), value)
}

func TestEncryptedSlots_WrongPassphraseReadsAsAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enc, err := NewEncryptedSlots(store, "first passphrase")
	require.NoError(t, err)
	require.NoError(t, enc.PutSlot(ctx, "mirror_recovery", []byte("secret")))

	other, err := NewEncryptedSlots(store, "second passphrase")
	require.NoError(t, err)

	_, ok, err := other.GetSlot(ctx, "mirror_recovery")

	require.NoError(t, err)
	assert.False(t, ok)
}
