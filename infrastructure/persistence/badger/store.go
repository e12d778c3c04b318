// Package badger implements the durable store ports over an embedded
// BadgerDB. All domain records are stored as JSON values under typed key
// prefixes; collections are small enough for a single-user journal that full
// prefix scans stay cheap.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/utils"
)

const (
	prefixReflection = "reflection/"
	prefixThread     = "thread/"
	prefixAxis       = "axis/"
	keySettings      = "settings"
	prefixSlot       = "slot/"
)

// Config holds configuration for the store
type Config struct {
	// Path is the directory for the database files. Ignored in-memory.
	Path string

	// InMemory enables in-memory mode, used by tests
	InMemory bool

	// SyncWrites enables synchronous writes for durability
	SyncWrites bool
}

// DefaultConfig returns production defaults for the given data directory
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store implements ports.Store and ports.SlotStore over BadgerDB
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// badgerLogger adapts zap to BadgerDB's Logger interface
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// NewStore opens the database. The operation is idempotent at the process
// level: opening an existing directory reuses it. A denied or corrupt
// database surfaces as a StorageUnavailable error, fatal for the session.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, pkgerrors.NewStorageUnavailableError("no database path configured", nil)
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, pkgerrors.NewStorageUnavailableError(
				fmt.Sprintf("cannot create data directory %s", cfg.Path), err)
		}
		opts = badger.DefaultOptions(filepath.Clean(cfg.Path)).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logger.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, pkgerrors.NewStorageUnavailableError("cannot open database", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw database for the unit of work
func (s *Store) DB() *badger.DB {
	return s.db
}

// Reflection collection

// Reflections returns all reflections ordered by creation time
func (s *Store) Reflections(ctx context.Context) ([]*entities.Reflection, error) {
	records, err := scanRecords[ports.ReflectionRecord](s.db, prefixReflection)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("scan reflections", err)
	}

	reflections := make([]*entities.Reflection, 0, len(records))
	for _, rec := range records {
		reflection, err := reflectionFromRecord(rec)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "decode reflection record")
		}
		reflections = append(reflections, reflection)
	}

	sort.Slice(reflections, func(i, j int) bool {
		if !reflections[i].CreatedAt().Equal(reflections[j].CreatedAt()) {
			return reflections[i].CreatedAt().Before(reflections[j].CreatedAt())
		}
		return reflections[i].ID().String() < reflections[j].ID().String()
	})

	return reflections, nil
}

// GetReflection retrieves a reflection by its ID
func (s *Store) GetReflection(ctx context.Context, id valueobjects.ReflectionID) (*entities.Reflection, error) {
	rec, err := getRecord[ports.ReflectionRecord](s.db, prefixReflection+id.String())
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, pkgerrors.NewNotFoundError("reflection")
		}
		return nil, pkgerrors.NewDatabaseError("get reflection", err)
	}
	return reflectionFromRecord(rec)
}

// AddReflection persists a new reflection
func (s *Store) AddReflection(ctx context.Context, reflection *entities.Reflection) error {
	key := prefixReflection + reflection.ID().String()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return pkgerrors.NewConflictError("reflection already exists")
		} else if err != badger.ErrKeyNotFound {
			return pkgerrors.NewDatabaseError("add reflection", err)
		}
		return setRecord(txn, key, recordFromReflection(reflection))
	})
}

// UpdateReflection persists changes to an existing reflection.
// Updating a missing id fails loudly: a silent no-op would hide bugs in a
// single-user local tool.
func (s *Store) UpdateReflection(ctx context.Context, reflection *entities.Reflection) error {
	key := prefixReflection + reflection.ID().String()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == badger.ErrKeyNotFound {
			return pkgerrors.NewNotFoundError("reflection")
		} else if err != nil {
			return pkgerrors.NewDatabaseError("update reflection", err)
		}
		return setRecord(txn, key, recordFromReflection(reflection))
	})
}

// DeleteReflection removes a reflection. Deleting a missing id is a no-op.
func (s *Store) DeleteReflection(ctx context.Context, id valueobjects.ReflectionID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixReflection + id.String()))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete reflection", err)
	}
	return nil
}

// Thread collection

// Threads returns all threads ordered by creation time
func (s *Store) Threads(ctx context.Context) ([]*entities.Thread, error) {
	records, err := scanRecords[ports.ThreadRecord](s.db, prefixThread)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("scan threads", err)
	}

	threads := make([]*entities.Thread, 0, len(records))
	for _, rec := range records {
		thread, err := threadFromRecord(rec)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "decode thread record")
		}
		threads = append(threads, thread)
	}

	sort.Slice(threads, func(i, j int) bool {
		if !threads[i].CreatedAt().Equal(threads[j].CreatedAt()) {
			return threads[i].CreatedAt().Before(threads[j].CreatedAt())
		}
		return threads[i].ID().String() < threads[j].ID().String()
	})

	return threads, nil
}

// GetThread retrieves a thread by its ID
func (s *Store) GetThread(ctx context.Context, id valueobjects.ThreadID) (*entities.Thread, error) {
	rec, err := getRecord[ports.ThreadRecord](s.db, prefixThread+id.String())
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, pkgerrors.NewNotFoundError("thread")
		}
		return nil, pkgerrors.NewDatabaseError("get thread", err)
	}
	return threadFromRecord(rec)
}

// AddThread persists a new thread
func (s *Store) AddThread(ctx context.Context, thread *entities.Thread) error {
	key := prefixThread + thread.ID().String()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return pkgerrors.NewConflictError("thread already exists")
		} else if err != badger.ErrKeyNotFound {
			return pkgerrors.NewDatabaseError("add thread", err)
		}
		return setRecord(txn, key, recordFromThread(thread))
	})
}

// UpdateThread persists changes to an existing thread
func (s *Store) UpdateThread(ctx context.Context, thread *entities.Thread) error {
	key := prefixThread + thread.ID().String()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == badger.ErrKeyNotFound {
			return pkgerrors.NewNotFoundError("thread")
		} else if err != nil {
			return pkgerrors.NewDatabaseError("update thread", err)
		}
		return setRecord(txn, key, recordFromThread(thread))
	})
}

// DeleteThread removes a thread. Deleting a missing id is a no-op.
func (s *Store) DeleteThread(ctx context.Context, id valueobjects.ThreadID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixThread + id.String()))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete thread", err)
	}
	return nil
}

// Identity axis collection

// Axes returns all identity axes ordered by creation time
func (s *Store) Axes(ctx context.Context) ([]*entities.IdentityAxis, error) {
	records, err := scanRecords[ports.AxisRecord](s.db, prefixAxis)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("scan axes", err)
	}

	axes := make([]*entities.IdentityAxis, 0, len(records))
	for _, rec := range records {
		axis, err := axisFromRecord(rec)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "decode axis record")
		}
		axes = append(axes, axis)
	}

	sort.Slice(axes, func(i, j int) bool {
		if !axes[i].CreatedAt().Equal(axes[j].CreatedAt()) {
			return axes[i].CreatedAt().Before(axes[j].CreatedAt())
		}
		return axes[i].ID().String() < axes[j].ID().String()
	})

	return axes, nil
}

// GetAxis retrieves an identity axis by its ID
func (s *Store) GetAxis(ctx context.Context, id valueobjects.AxisID) (*entities.IdentityAxis, error) {
	rec, err := getRecord[ports.AxisRecord](s.db, prefixAxis+id.String())
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, pkgerrors.NewNotFoundError("identity axis")
		}
		return nil, pkgerrors.NewDatabaseError("get axis", err)
	}
	return axisFromRecord(rec)
}

// AddAxis persists a new identity axis
func (s *Store) AddAxis(ctx context.Context, axis *entities.IdentityAxis) error {
	key := prefixAxis + axis.ID().String()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return pkgerrors.NewConflictError("identity axis already exists")
		} else if err != badger.ErrKeyNotFound {
			return pkgerrors.NewDatabaseError("add axis", err)
		}
		return setRecord(txn, key, recordFromAxis(axis))
	})
}

// UpdateAxis persists changes to an existing identity axis
func (s *Store) UpdateAxis(ctx context.Context, axis *entities.IdentityAxis) error {
	key := prefixAxis + axis.ID().String()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == badger.ErrKeyNotFound {
			return pkgerrors.NewNotFoundError("identity axis")
		} else if err != nil {
			return pkgerrors.NewDatabaseError("update axis", err)
		}
		return setRecord(txn, key, recordFromAxis(axis))
	})
}

// DeleteAxis removes an identity axis. Deleting a missing id is a no-op.
func (s *Store) DeleteAxis(ctx context.Context, id valueobjects.AxisID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixAxis + id.String()))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete axis", err)
	}
	return nil
}

// Settings singleton

// Settings returns the singleton settings record, creating it with defaults
// on first access
func (s *Store) Settings(ctx context.Context) (*entities.Settings, error) {
	rec, err := getRecord[ports.SettingsRecord](s.db, keySettings)
	if err == badger.ErrKeyNotFound {
		settings := entities.DefaultSettings()
		if err := s.UpdateSettings(ctx, settings); err != nil {
			return nil, err
		}
		return settings, nil
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get settings", err)
	}
	return settingsFromRecord(rec), nil
}

// UpdateSettings persists the settings singleton
func (s *Store) UpdateSettings(ctx context.Context, settings *entities.Settings) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return setRecord(txn, keySettings, recordFromSettings(settings))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("update settings", err)
	}
	return nil
}

// Export / import / clear

// ExportAll serializes every collection into one transferable document
func (s *Store) ExportAll(ctx context.Context) (*ports.ExportDocument, error) {
	doc := &ports.ExportDocument{
		Version:    ports.ExportDocumentVersion,
		ExportedAt: time.Now(),
	}

	var err error
	if doc.Reflections, err = scanRecords[ports.ReflectionRecord](s.db, prefixReflection); err != nil {
		return nil, pkgerrors.NewDatabaseError("export reflections", err)
	}
	if doc.Threads, err = scanRecords[ports.ThreadRecord](s.db, prefixThread); err != nil {
		return nil, pkgerrors.NewDatabaseError("export threads", err)
	}
	if doc.Axes, err = scanRecords[ports.AxisRecord](s.db, prefixAxis); err != nil {
		return nil, pkgerrors.NewDatabaseError("export axes", err)
	}

	sortRecordsByCreation(doc)

	if rec, err := getRecord[ports.SettingsRecord](s.db, keySettings); err == nil {
		doc.Settings = &rec
	} else if err != badger.ErrKeyNotFound {
		return nil, pkgerrors.NewDatabaseError("export settings", err)
	}

	return doc, nil
}

// ImportAll replaces all collections atomically from a previously exported
// document. The shape is validated before anything is mutated: a malformed
// document must never leave the store partially cleared.
func (s *Store) ImportAll(ctx context.Context, doc *ports.ExportDocument) error {
	if err := ValidateExportDocument(doc); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixReflection, prefixThread, prefixAxis} {
			if err := deletePrefix(txn, prefix); err != nil {
				return err
			}
		}
		if err := txn.Delete([]byte(keySettings)); err != nil {
			return err
		}

		for _, rec := range doc.Reflections {
			if err := setRecord(txn, prefixReflection+rec.ID, rec); err != nil {
				return err
			}
		}
		for _, rec := range doc.Threads {
			if err := setRecord(txn, prefixThread+rec.ID, rec); err != nil {
				return err
			}
		}
		for _, rec := range doc.Axes {
			if err := setRecord(txn, prefixAxis+rec.ID, rec); err != nil {
				return err
			}
		}
		if doc.Settings != nil {
			if err := setRecord(txn, keySettings, *doc.Settings); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("import all", err)
	}

	s.logger.Info("Imported data",
		zap.Int("reflections", len(doc.Reflections)),
		zap.Int("threads", len(doc.Threads)),
		zap.Int("axes", len(doc.Axes)),
	)

	return nil
}

// ClearAll irreversibly empties every collection. Slot keys (recovery
// snapshot, backups) are kept: a backup taken before a clear is the way back.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixReflection, prefixThread, prefixAxis} {
			if err := deletePrefix(txn, prefix); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(keySettings))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("clear all", err)
	}

	s.logger.Warn("Cleared all collections")
	return nil
}

// BeginUnitOfWork starts a staged-write transaction across collections
func (s *Store) BeginUnitOfWork(ctx context.Context) (ports.UnitOfWork, error) {
	return newUnitOfWork(s), nil
}

// ValidateExportDocument checks an import document's shape without touching
// the store
func ValidateExportDocument(doc *ports.ExportDocument) error {
	if doc == nil {
		return pkgerrors.NewImportInvalidError("document is empty")
	}
	if doc.Version != ports.ExportDocumentVersion {
		return pkgerrors.NewImportInvalidError(
			fmt.Sprintf("unsupported document version %d", doc.Version))
	}
	if err := utils.ValidateStruct(doc); err != nil {
		return pkgerrors.NewImportInvalidError(err.Error())
	}
	return nil
}

// sortRecordsByCreation orders exported collections by creation time so the
// document is stable across exports of the same data
func sortRecordsByCreation(doc *ports.ExportDocument) {
	sort.Slice(doc.Reflections, func(i, j int) bool {
		if !doc.Reflections[i].CreatedAt.Equal(doc.Reflections[j].CreatedAt) {
			return doc.Reflections[i].CreatedAt.Before(doc.Reflections[j].CreatedAt)
		}
		return doc.Reflections[i].ID < doc.Reflections[j].ID
	})
	sort.Slice(doc.Threads, func(i, j int) bool {
		if !doc.Threads[i].CreatedAt.Equal(doc.Threads[j].CreatedAt) {
			return doc.Threads[i].CreatedAt.Before(doc.Threads[j].CreatedAt)
		}
		return doc.Threads[i].ID < doc.Threads[j].ID
	})
	sort.Slice(doc.Axes, func(i, j int) bool {
		if !doc.Axes[i].CreatedAt.Equal(doc.Axes[j].CreatedAt) {
			return doc.Axes[i].CreatedAt.Before(doc.Axes[j].CreatedAt)
		}
		return doc.Axes[i].ID < doc.Axes[j].ID
	})
}

// Low-level helpers

// scanRecords decodes every value under a key prefix
func scanRecords[T any](db *badger.DB, prefix string) ([]T, error) {
	records := []T{}
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// getRecord decodes the value at a single key
func getRecord[T any](db *badger.DB, key string) (T, error) {
	var rec T
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// setRecord encodes a record under a key within a transaction
func setRecord(txn *badger.Txn, key string, rec interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// deletePrefix removes every key under a prefix within a transaction
func deletePrefix(txn *badger.Txn, prefix string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	keys := [][]byte{}
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
