package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mirror-backend/application/ports"
	pkgerrors "mirror-backend/pkg/errors"
)

// backupSlotPrefix namespaces timestamped backup blobs in the slot store
const backupSlotPrefix = "mirror_backup_"

// BackupInfo describes one stored backup
type BackupInfo struct {
	Slot      string    `json:"slot"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupService writes timestamped full-export blobs into slot storage and
// prunes old ones. Backups are best-effort extras; restoring goes through
// the state manager's import path.
type BackupService struct {
	store  ports.Store
	slots  ports.SlotStore
	logger *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewBackupService creates a backup service
func NewBackupService(store ports.Store, slots ports.SlotStore, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		store:  store,
		slots:  slots,
		logger: logger,
		now:    time.Now,
	}
}

// CreateBackup exports everything into a new timestamped slot and returns
// its descriptor
func (s *BackupService) CreateBackup(ctx context.Context) (*BackupInfo, error) {
	doc, err := s.store.ExportAll(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode backup")
	}

	at := s.now()
	slot := fmt.Sprintf("%s%d", backupSlotPrefix, at.Unix())
	if err := s.slots.PutSlot(ctx, slot, data); err != nil {
		return nil, err
	}

	s.logger.Info("Backup created",
		zap.String("slot", slot),
		zap.Int("bytes", len(data)),
	)

	return &BackupInfo{Slot: slot, CreatedAt: at.Truncate(time.Second)}, nil
}

// ListBackups returns all stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	slots, err := s.slots.ListSlots(ctx, backupSlotPrefix)
	if err != nil {
		return nil, err
	}

	backups := make([]BackupInfo, 0, len(slots))
	for _, slot := range slots {
		at, ok := backupTime(slot)
		if !ok {
			// Foreign keys under the prefix are skipped, not errors
			continue
		}
		backups = append(backups, BackupInfo{Slot: slot, CreatedAt: at})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// GetBackup reads and decodes one backup document
func (s *BackupService) GetBackup(ctx context.Context, slot string) (*ports.ExportDocument, error) {
	if _, ok := backupTime(slot); !ok {
		return nil, pkgerrors.NewValidationError("not a backup slot")
	}

	data, ok, err := s.slots.GetSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.NewNotFoundError("backup")
	}

	var doc ports.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.NewImportInvalidError("backup is corrupt: " + err.Error())
	}
	return &doc, nil
}

// DeleteBackup removes one backup slot
func (s *BackupService) DeleteBackup(ctx context.Context, slot string) error {
	if _, ok := backupTime(slot); !ok {
		return pkgerrors.NewValidationError("not a backup slot")
	}
	return s.slots.DeleteSlot(ctx, slot)
}

// PruneBackups deletes all but the newest keep backups and returns how many
// were removed
func (s *BackupService) PruneBackups(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, pkgerrors.NewValidationError("keep cannot be negative")
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		return 0, nil
	}

	pruned := 0
	for _, backup := range backups[keep:] {
		if err := s.slots.DeleteSlot(ctx, backup.Slot); err != nil {
			return pruned, err
		}
		pruned++
	}

	s.logger.Info("Backups pruned",
		zap.Int("removed", pruned),
		zap.Int("kept", keep),
	)
	return pruned, nil
}

// backupTime parses the unix timestamp out of a backup slot name
func backupTime(slot string) (time.Time, bool) {
	raw, found := strings.CutPrefix(slot, backupSlotPrefix)
	if !found {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
