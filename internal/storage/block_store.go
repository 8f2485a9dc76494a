package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/thanhnp/record-ledger/internal/ledger"
	"github.com/thanhnp/record-ledger/internal/models"
	"github.com/thanhnp/record-ledger/pkg/semver"
)

// FormatVersion is the on-disk layout version written by this package
const FormatVersion = "1.0.0"

const (
	metaFormatVersion = "format_version"
	metaLatest        = "latest"
)

// BlockStore persists the blocks of one ledger. It implements ledger.Store.
type BlockStore struct {
	db     *PebbleDB
	ledger string
}

// NewBlockStore creates a BlockStore for the named ledger, recording the
// format version on first use and refusing incompatible databases.
// On a read-only database the version must already be recorded.
func NewBlockStore(db *PebbleDB, ledger string) (*BlockStore, error) {
	s := &BlockStore{db: db, ledger: ledger}
	if err := s.checkFormat(); err != nil {
		return nil, err
	}
	return s, nil
}

// blockKey creates a key for the blocks column family
func blockKey(ledger string, index int64) []byte {
	return []byte(fmt.Sprintf("%s:%012d", ledger, index))
}

// hashKey creates a key for the hashes column family
func hashKey(ledger, hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", ledger, hash))
}

// metaKey creates a key for the meta column family
func metaKey(ledger, name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", ledger, name))
}

func (s *BlockStore) ledgerPrefix() []byte {
	return []byte(s.ledger + ":")
}

func (s *BlockStore) checkFormat() error {
	want := semver.MustParse(FormatVersion)

	data, err := s.db.Get(CFMeta, metaKey(s.ledger, metaFormatVersion))
	if err != nil {
		return err
	}
	if data == nil {
		if s.db.ReadOnly() {
			return fmt.Errorf("no ledger %s in database", s.ledger)
		}
		return s.db.Put(CFMeta, metaKey(s.ledger, metaFormatVersion), []byte(FormatVersion))
	}

	have, err := semver.Parse(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse format version: %w", err)
	}
	if !want.Reads(have) {
		return fmt.Errorf("incompatible storage format %s, this build reads up to %s", have, want)
	}
	return nil
}

// putBlock adds the block and its hash index entry to the batch
func (s *BlockStore) putBlock(batch *WriteBatch, block models.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	// Store block by index
	if err := s.db.PutBatch(batch, CFBlocks, blockKey(s.ledger, block.Index), data); err != nil {
		return err
	}

	// Store index by hash for lookup
	if err := s.db.PutBatch(batch, CFHashes, hashKey(s.ledger, block.Hash), []byte(strconv.FormatInt(block.Index, 10))); err != nil {
		return err
	}

	return s.db.PutBatch(batch, CFMeta, metaKey(s.ledger, metaLatest), []byte(strconv.FormatInt(block.Index, 10)))
}

// Append stores a block in the database
func (s *BlockStore) Append(block models.Block) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	if err := s.putBlock(batch, block); err != nil {
		return err
	}
	return s.db.WriteBatch(batch)
}

// Reset removes every block of the ledger and stores genesis in its place
func (s *BlockStore) Reset(genesis models.Block) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	if err := s.db.DeletePrefixBatch(batch, CFBlocks, s.ledgerPrefix()); err != nil {
		return err
	}
	if err := s.db.DeletePrefixBatch(batch, CFHashes, s.ledgerPrefix()); err != nil {
		return err
	}
	if err := s.putBlock(batch, genesis); err != nil {
		return err
	}
	return s.db.WriteBatch(batch)
}

// Load retrieves every block of the ledger in index order.
// The latest pointer and the hash index must agree with the stored blocks.
func (s *BlockStore) Load() ([]models.Block, error) {
	iter, err := s.db.NewPrefixIterator(CFBlocks, s.ledgerPrefix())
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var blocks []models.Block
	for ; iter.Valid(); iter.Next() {
		var block models.Block
		if err := json.Unmarshal(iter.Value(), &block); err != nil {
			return nil, fmt.Errorf("failed to unmarshal block %s: %w", iter.Key(), err)
		}
		blocks = append(blocks, block)
	}

	if err := s.checkIndexes(blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// checkIndexes catches blocks added or removed behind the store's back
func (s *BlockStore) checkIndexes(blocks []models.Block) error {
	latest, err := s.GetLatestIndex()
	if err != nil {
		return err
	}
	if latest+1 != int64(len(blocks)) {
		return fmt.Errorf("%w: latest pointer is %d but %d blocks are stored", ledger.ErrIntegrity, latest, len(blocks))
	}
	if len(blocks) == 0 {
		return nil
	}

	genesis, err := s.GetByHash(blocks[0].Hash)
	if err != nil {
		return err
	}
	if genesis == nil || genesis.Index != 0 {
		return fmt.Errorf("%w: genesis hash %s is not indexed", ledger.ErrIntegrity, blocks[0].Hash)
	}
	return nil
}

// GetByIndex retrieves a block by its index
func (s *BlockStore) GetByIndex(index int64) (*models.Block, error) {
	data, err := s.db.Get(CFBlocks, blockKey(s.ledger, index))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var block models.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}
	return &block, nil
}

// GetByHash retrieves a block by its hash
func (s *BlockStore) GetByHash(hash string) (*models.Block, error) {
	// Get index from hash index
	indexData, err := s.db.Get(CFHashes, hashKey(s.ledger, hash))
	if err != nil {
		return nil, err
	}
	if indexData == nil {
		return nil, nil
	}

	index, err := strconv.ParseInt(string(indexData), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse block index: %w", err)
	}
	return s.GetByIndex(index)
}

// GetLatestIndex returns the index of the last stored block, or -1 when empty
func (s *BlockStore) GetLatestIndex() (int64, error) {
	data, err := s.db.Get(CFMeta, metaKey(s.ledger, metaLatest))
	if err != nil {
		return 0, err
	}
	if data == nil {
		return -1, nil
	}

	index, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse latest index: %w", err)
	}
	return index, nil
}
