// Package registry keeps the list of books, independent ledgers each stored
// in its own database, and which one is active.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when a book is not registered.
	ErrNotFound = errors.New("book not found")
	// ErrActive is returned when deleting the active book.
	ErrActive = errors.New("book is active")
)

// Bucket names.
const (
	bucketBooks = "books"
	bucketMeta  = "meta"
)

var keyActive = []byte("active")

// Book is a registered ledger.
type Book struct {
	UID            string    `json:"uid"`
	DisplayName    string    `json:"displayName"`
	RootAccountUID string    `json:"rootAccount,omitempty"`
	Path           string    `json:"path"` // database file of the book
	Active         bool      `json:"-"`
	LastSync       time.Time `json:"lastSync,omitzero"`
	Created        time.Time `json:"created"`
}

// Registry is a bbolt file listing the books.
type Registry struct {
	db *bolt.DB
}

// Open opens, or creates, the registry at path.
func Open(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{bucketBooks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Registry{db: db}, nil
}

// Close closes the registry file.
func (r *Registry) Close() error { return r.db.Close() }

// Add registers b. The first registered book becomes the active one.
func (r *Registry) Add(b Book) error {
	if b.UID == "" || b.Path == "" {
		return fmt.Errorf("book requires an identifier and a path")
	}
	if b.Created.IsZero() {
		b.Created = time.Now()
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketBooks)).Put([]byte(b.UID), data); err != nil {
			return err
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if b.Active || meta.Get(keyActive) == nil {
			return meta.Put(keyActive, []byte(b.UID))
		}
		return nil
	})
}

// Book returns the book uid.
func (r *Registry) Book(uid string) (Book, error) {
	var b Book
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketBooks)).Get([]byte(uid))
		if data == nil {
			return fmt.Errorf("%s: %w", uid, ErrNotFound)
		}
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		b.Active = string(tx.Bucket([]byte(bucketMeta)).Get(keyActive)) == uid
		return nil
	})
	return b, err
}

// Books returns all the books, sorted by display name.
func (r *Registry) Books() ([]Book, error) {
	var books []Book
	err := r.db.View(func(tx *bolt.Tx) error {
		active := string(tx.Bucket([]byte(bucketMeta)).Get(keyActive))
		return tx.Bucket([]byte(bucketBooks)).ForEach(func(k, v []byte) error {
			var b Book
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("book %s: %w", k, err)
			}
			b.Active = b.UID == active
			books = append(books, b)
			return nil
		})
	})
	slices.SortFunc(books, func(a, b Book) int { return strings.Compare(a.DisplayName, b.DisplayName) })
	return books, err
}

// Active returns the active book.
func (r *Registry) Active() (Book, error) {
	var uid string
	err := r.db.View(func(tx *bolt.Tx) error {
		uid = string(tx.Bucket([]byte(bucketMeta)).Get(keyActive))
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	if uid == "" {
		return Book{}, fmt.Errorf("no active book: %w", ErrNotFound)
	}
	return r.Book(uid)
}

// SetActive makes book uid the active one.
func (r *Registry) SetActive(uid string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketBooks)).Get([]byte(uid)) == nil {
			return fmt.Errorf("%s: %w", uid, ErrNotFound)
		}
		return tx.Bucket([]byte(bucketMeta)).Put(keyActive, []byte(uid))
	})
}

// Touch records that book uid was synchronized at t.
func (r *Registry) Touch(uid string, t time.Time) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		books := tx.Bucket([]byte(bucketBooks))
		data := books.Get([]byte(uid))
		if data == nil {
			return fmt.Errorf("%s: %w", uid, ErrNotFound)
		}
		var b Book
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		b.LastSync = t
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		return books.Put([]byte(uid), data)
	})
}

// Delete unregisters book uid. The active book cannot be deleted.
// The book database itself is left untouched.
func (r *Registry) Delete(uid string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if string(tx.Bucket([]byte(bucketMeta)).Get(keyActive)) == uid {
			return fmt.Errorf("%s: %w", uid, ErrActive)
		}
		books := tx.Bucket([]byte(bucketBooks))
		if books.Get([]byte(uid)) == nil {
			return fmt.Errorf("%s: %w", uid, ErrNotFound)
		}
		return books.Delete([]byte(uid))
	})
}
