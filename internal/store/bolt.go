package store

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// BoltStore is an embedded single-file KV backend built on bbolt. It survives
// restarts without requiring an external database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bolt file at path and provisions every
// known bucket. The open grabs an exclusive file lock and fails after one
// second if another process holds it.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open bolt store")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range Buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, "failed to create bolt buckets")
	}

	return &BoltStore{db: db}, nil
}

// Put stores value under bucket/key, overwriting any previous entry.
func (b *BoltStore) Put(ctx context.Context, bucket, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown bucket %q", bucket)
		}
		return bkt.Put([]byte(key), value)
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to put bolt entry")
	}
	return nil
}

// Get returns a copy of the entry stored under bucket/key.
func (b *BoltStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown bucket %q", bucket)
		}
		value := bkt.Get([]byte(key))
		if value == nil {
			return ErrKeyNotFound
		}
		out = make([]byte, len(value))
		copy(out, value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the entry stored under bucket/key.
func (b *BoltStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown bucket %q", bucket)
		}
		if bkt.Get([]byte(key)) == nil {
			return ErrKeyNotFound
		}
		return bkt.Delete([]byte(key))
	})
}

// ForEach visits every entry in a bucket inside a single read transaction.
// The callback receives copies, so it may retain them.
func (b *BoltStore) ForEach(
	ctx context.Context,
	bucket string,
	fn func(key string, value []byte) error,
) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown bucket %q", bucket)
		}
		return bkt.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(k)
			value := make([]byte, len(v))
			copy(value, v)
			return fn(key, value)
		})
	})
}

// Close releases the bolt file lock and flushes pending writes.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
