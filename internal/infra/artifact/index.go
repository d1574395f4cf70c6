package artifact

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"seismcp/internal/domain"
)

var indexBucket = []byte("artifacts")

// Entry is the index record kept for every artifact written by a tool.
type Entry struct {
	ID        string              `json:"id"`
	Kind      domain.ArtifactKind `json:"kind"`
	Tool      string              `json:"tool"`
	Provider  string              `json:"provider,omitempty"`
	Path      string              `json:"path"`
	Manifest  string              `json:"manifest,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Index records artifacts in a bbolt file so previous downloads can be
// enumerated without scanning the data directory.
type Index struct {
	db *bolt.DB
}

// OpenIndex opens (or creates) the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open artifact index: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(indexBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init artifact index: %w", err)
	}
	return &Index{db: db}, nil
}

// Put upserts an entry keyed by kind and id. Re-recording the same
// artifact is idempotent, mirroring the overwrite semantics on disk.
func (x *Index) Put(entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal index entry: %w", err)
	}
	key := []byte(string(entry.Kind) + "/" + entry.ID)
	return x.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(indexBucket).Put(key, raw)
	})
}

// List returns all recorded entries in key order.
func (x *Index) List() ([]Entry, error) {
	var entries []Entry
	err := x.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(indexBucket).ForEach(func(_, value []byte) error {
			var entry Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list artifact index: %w", err)
	}
	return entries, nil
}

// Close releases the underlying database.
func (x *Index) Close() error {
	return x.db.Close()
}
