package badger

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"mirror-backend/application/ports"
	pkgerrors "mirror-backend/pkg/errors"
)

// maxSlotValueSize caps a single slot blob. A recovery snapshot or backup
// larger than this is rejected as a quota failure rather than written.
const maxSlotValueSize = 16 << 20 // 16 MiB

// PutSlot overwrites the value at a fixed slot key
func (s *Store) PutSlot(ctx context.Context, slot string, value []byte) error {
	if len(value) > maxSlotValueSize {
		return pkgerrors.NewQuotaExceededError(slot, nil)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixSlot+slot), value)
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("put slot", err)
	}
	return nil
}

// GetSlot reads the value at a slot key; ok is false when absent
func (s *Store) GetSlot(ctx context.Context, slot string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixSlot + slot))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.NewDatabaseError("get slot", err)
	}
	return value, true, nil
}

// DeleteSlot removes a slot. Deleting a missing slot is a no-op.
func (s *Store) DeleteSlot(ctx context.Context, slot string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixSlot + slot))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete slot", err)
	}
	return nil
}

// ListSlots returns all slot keys with the given prefix, sorted
func (s *Store) ListSlots(ctx context.Context, prefix string) ([]string, error) {
	slots := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixSlot + prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			slots = append(slots, strings.TrimPrefix(key, prefixSlot))
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list slots", err)
	}
	sort.Strings(slots)
	return slots, nil
}

// EncryptedSlots wraps a SlotStore with AES-256-GCM. Values are sealed on
// write and opened on read; slot keys stay in the clear so listing and
// pruning still work.
type EncryptedSlots struct {
	inner ports.SlotStore
	aead  cipher.AEAD
}

// NewEncryptedSlots derives an AES-256 key from the passphrase and wraps the
// given slot store
func NewEncryptedSlots(inner ports.SlotStore, passphrase string) (*EncryptedSlots, error) {
	if passphrase == "" {
		return nil, pkgerrors.NewValidationError("encryption passphrase cannot be empty")
	}
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create gcm")
	}
	return &EncryptedSlots{inner: inner, aead: aead}, nil
}

// PutSlot seals the value and writes it to the inner store
func (e *EncryptedSlots) PutSlot(ctx context.Context, slot string, value []byte) error {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return pkgerrors.Wrap(err, "generate nonce")
	}
	sealed := e.aead.Seal(nonce, nonce, value, []byte(slot))
	return e.inner.PutSlot(ctx, slot, sealed)
}

// GetSlot reads and opens the value. A value that fails to open is treated
// as absent: a corrupt or foreign-key snapshot is useless either way.
func (e *EncryptedSlots) GetSlot(ctx context.Context, slot string) ([]byte, bool, error) {
	sealed, ok, err := e.inner.GetSlot(ctx, slot)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(sealed) < e.aead.NonceSize() {
		return nil, false, nil
	}
	nonce, ciphertext := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	value, err := e.aead.Open(nil, nonce, ciphertext, []byte(slot))
	if err != nil {
		return nil, false, nil
	}
	return value, true, nil
}

// DeleteSlot removes a slot from the inner store
func (e *EncryptedSlots) DeleteSlot(ctx context.Context, slot string) error {
	return e.inner.DeleteSlot(ctx, slot)
}

// ListSlots lists slot keys from the inner store
func (e *EncryptedSlots) ListSlots(ctx context.Context, prefix string) ([]string, error) {
	return e.inner.ListSlots(ctx, prefix)
}
