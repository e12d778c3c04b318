package badger

import (
	"context"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"mirror-backend/domain/core/entities"
	pkgerrors "mirror-backend/pkg/errors"
)

// stagedWrite is a pending upsert collected before commit
type stagedWrite struct {
	key    string
	record interface{}
}

// unitOfWork stages writes across collections and applies them in a single
// database transaction, so a cross-entity mutation is all-or-nothing.
type unitOfWork struct {
	store *Store

	mu         sync.Mutex
	staged     []stagedWrite
	committed  bool
	rolledBack bool
}

func newUnitOfWork(store *Store) *unitOfWork {
	return &unitOfWork{
		store:  store,
		staged: []stagedWrite{},
	}
}

// StageReflection stages a reflection upsert
func (u *unitOfWork) StageReflection(reflection *entities.Reflection) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.committed || u.rolledBack {
		return pkgerrors.NewInternalError("unit of work already finished")
	}
	u.staged = append(u.staged, stagedWrite{
		key:    prefixReflection + reflection.ID().String(),
		record: recordFromReflection(reflection),
	})
	return nil
}

// StageThread stages a thread upsert
func (u *unitOfWork) StageThread(thread *entities.Thread) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.committed || u.rolledBack {
		return pkgerrors.NewInternalError("unit of work already finished")
	}
	u.staged = append(u.staged, stagedWrite{
		key:    prefixThread + thread.ID().String(),
		record: recordFromThread(thread),
	})
	return nil
}

// Commit applies all staged writes atomically
func (u *unitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.committed {
		return pkgerrors.NewInternalError("unit of work already committed")
	}
	if u.rolledBack {
		return pkgerrors.NewInternalError("unit of work already rolled back")
	}

	err := u.store.db.Update(func(txn *badger.Txn) error {
		for _, w := range u.staged {
			if err := setRecord(txn, w.key, w.record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("commit unit of work", err)
	}

	u.committed = true
	u.staged = nil
	return nil
}

// Rollback discards all staged writes. Safe to call after Commit; it then
// does nothing, which lets callers defer it unconditionally.
func (u *unitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.committed {
		return nil
	}
	u.rolledBack = true
	u.staged = nil
	return nil
}
