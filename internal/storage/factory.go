package storage

import "fmt"

// Store backend kinds. The empty kind resolves to DefaultStoreKind, which
// depends on whether the binary was built with the sqlite tag.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NewStore builds a trial-record store for the requested backend. The sqlite
// path is ignored by the memory backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	if kind == "" {
		kind = DefaultStoreKind()
	}
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold external resources; the memory
// store has none and is a no-op.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
