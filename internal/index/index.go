package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Errors returned by index operations.
var (
	ErrStoreNotFound      = errors.New("embedding store not found")
	ErrNoChunks           = errors.New("no chunks to index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
)

const (
	// IndexFileName is the name of the vector index file.
	IndexFileName = "index.gob"

	// ChunksFileName is the name of the chunk store file.
	ChunksFileName = "chunks.jsonl"

	// CurrentIndexVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the index format.
	CurrentIndexVersion = 1
)

// IndexPath returns the path to the vector index file inside a store directory.
func IndexPath(dir string) string {
	return filepath.Join(dir, IndexFileName)
}

// ChunksPath returns the path to the chunk store file inside a store directory.
func ChunksPath(dir string) string {
	return filepath.Join(dir, ChunksFileName)
}

// Save persists the store to a directory: chunks first, then the index.
// The index is written last and atomically, so a loadable index always has
// its chunk file beside it.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	if err := WriteChunks(ChunksPath(dir), s.Chunks); err != nil {
		return fmt.Errorf("writing chunk store: %w", err)
	}

	indexPath := IndexPath(dir)
	tempPath := indexPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(s.Index); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, indexPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads the store back from a directory. A missing index file is
// reported as ErrStoreNotFound; a present index whose chunk file is missing
// or out of step is corruption and gets a descriptive error instead.
func Load(dir string) (*Store, error) {
	f, err := os.Open(IndexPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx Index
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'regap index build')",
			ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}

	chunks, err := ReadChunks(ChunksPath(dir))
	if err != nil {
		return nil, fmt.Errorf("reading chunk store: %w", err)
	}
	if chunks == nil {
		return nil, fmt.Errorf("chunk store missing alongside index in %s", dir)
	}

	if len(chunks) != len(idx.Vectors) {
		return nil, fmt.Errorf("store mismatch in %s: %d vectors, %d chunks",
			dir, len(idx.Vectors), len(chunks))
	}
	for i, c := range chunks {
		if c.Ordinal != i {
			return nil, fmt.Errorf("chunk store out of order at position %d (ordinal %d)", i, c.Ordinal)
		}
	}

	return &Store{Index: &idx, Chunks: chunks}, nil
}

// Size returns the size of the index file in bytes.
func Size(dir string) (int64, error) {
	info, err := os.Stat(IndexPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrStoreNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Exists checks if the index file exists in a store directory.
func Exists(dir string) bool {
	_, err := os.Stat(IndexPath(dir))
	return err == nil
}
