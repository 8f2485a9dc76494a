package storage

import (
	"fmt"
	"path/filepath"
)

// LedgerStores holds the database and stores backing a single ledger
type LedgerStores struct {
	DB         *PebbleDB
	BlockStore *BlockStore
}

// NewLedgerStores creates the stores for a ledger using the given database
func NewLedgerStores(db *PebbleDB, ledger string) (*LedgerStores, error) {
	blockStore, err := NewBlockStore(db, ledger)
	if err != nil {
		return nil, err
	}
	return &LedgerStores{
		DB:         db,
		BlockStore: blockStore,
	}, nil
}

// OpenLedgerStores opens a separate database for the ledger under root,
// or an in-memory one when inMemory is set
func OpenLedgerStores(root, ledger string, inMemory bool) (*LedgerStores, error) {
	var (
		db  *PebbleDB
		err error
	)
	if inMemory {
		db, err = NewMemPebbleDB()
	} else {
		db, err = NewPebbleDB(filepath.Join(root, ledger))
	}
	if err != nil {
		return nil, err
	}

	stores, err := NewLedgerStores(db, ledger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger %s: %w", ledger, err)
	}
	return stores, nil
}

// OpenLedgerStoresReadOnly opens the existing database of a ledger under root
// without creating or modifying anything
func OpenLedgerStoresReadOnly(root, ledger string) (*LedgerStores, error) {
	db, err := OpenReadOnlyPebbleDB(filepath.Join(root, ledger))
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", ledger, err)
	}

	stores, err := NewLedgerStores(db, ledger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger %s: %w", ledger, err)
	}
	return stores, nil
}

// Close flushes unsynced writes and closes the database
func (ls *LedgerStores) Close() error {
	if err := ls.DB.Sync(); err != nil {
		ls.DB.Close()
		return fmt.Errorf("failed to flush database: %w", err)
	}
	return ls.DB.Close()
}
