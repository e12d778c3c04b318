package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	badgerstore "mirror-backend/infrastructure/persistence/badger"
	pkgerrors "mirror-backend/pkg/errors"
)

func newBackupFixture(t *testing.T) (*BackupService, *badgerstore.Store) {
	t.Helper()
	store, err := badgerstore.NewStore(badgerstore.InMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewBackupService(store, store, zap.NewNop()), store
}

func addReflection(t *testing.T, store *badgerstore.Store, text string) {
	t.Helper()
	content, err := valueobjects.NewReflectionContent(text)
	require.NoError(t, err)
	reflection, err := entities.NewReflection(content, valueobjects.LayerPrivate, valueobjects.ModalityText)
	require.NoError(t, err)
	require.NoError(t, store.AddReflection(context.Background(), reflection))
}

func TestBackupService_CreateAndGet(t *testing.T) {
	service, store := newBackupFixture(t)
	ctx := context.Background()
	addReflection(t, store, "worth backing up")

	info, err := service.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Contains(t, info.Slot, "mirror_backup_")

	doc, err := service.GetBackup(ctx, info.Slot)
	require.NoError(t, err)
	assert.Len(t, doc.Reflections, 1)
	assert.Equal(t, "worth backing up", doc.Reflections[0].Content)
}

func TestBackupService_GetMissingBackup(t *testing.T) {
	service, _ := newBackupFixture(t)

	_, err := service.GetBackup(context.Background(), "mirror_backup_12345")

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestBackupService_RejectsForeignSlotNames(t *testing.T) {
	service, _ := newBackupFixture(t)
	ctx := context.Background()

	_, err := service.GetBackup(ctx, "mirror_recovery_draft")
	assert.True(t, pkgerrors.IsValidation(err))

	err = service.DeleteBackup(ctx, "settings")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestBackupService_ListNewestFirst(t *testing.T) {
	service, _ := newBackupFixture(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		service.now = func() time.Time { return at }
		_, err := service.CreateBackup(ctx)
		require.NoError(t, err)
	}

	backups, err := service.ListBackups(ctx)

	require.NoError(t, err)
	require.Len(t, backups, 3)
	for i := 1; i < len(backups); i++ {
		assert.True(t, backups[i].CreatedAt.Before(backups[i-1].CreatedAt))
	}
}

func TestBackupService_Prune(t *testing.T) {
	service, _ := newBackupFixture(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		service.now = func() time.Time { return at }
		_, err := service.CreateBackup(ctx)
		require.NoError(t, err)
	}

	pruned, err := service.PruneBackups(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, pruned)

	remaining, err := service.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	// The newest two survived
	newest := base.Add(4 * time.Minute).Truncate(time.Second)
	assert.Equal(t, newest.Unix(), remaining[0].CreatedAt.Unix())

	// Pruning again is a no-op
	pruned, err = service.PruneBackups(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, pruned)
}
