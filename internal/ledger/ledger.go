package ledger

import (
	"fmt"
	"log"
	"sync"

	"github.com/thanhnp/record-ledger/internal/models"
)

// DefaultIDField is the payload field FindByID matches on
const DefaultIDField = "id"

// DefaultGenesisPayload returns the payload of a genesis block when none is configured
func DefaultGenesisPayload() map[string]any {
	return map[string]any{"message": "Genesis Block"}
}

// LinkRule decides which value of the previous block a new block links to
type LinkRule int

const (
	// LinkPreviousHash links each block to its predecessor's hash
	LinkPreviousHash LinkRule = iota
	// LinkLegacy copies the predecessor's own previous link forward, so every
	// block carries the genesis sentinel. Only for reading chains written that way.
	LinkLegacy
)

// ParseLinkRule parses a link rule name from configuration
func ParseLinkRule(s string) (LinkRule, error) {
	switch s {
	case "", "previous_hash":
		return LinkPreviousHash, nil
	case "legacy":
		return LinkLegacy, nil
	default:
		return 0, fmt.Errorf("unknown link rule: %s", s)
	}
}

func (r LinkRule) String() string {
	if r == LinkLegacy {
		return "legacy"
	}
	return "previous_hash"
}

// link returns the previous link a successor of prev must carry
func (r LinkRule) link(prev models.Block) string {
	if r == LinkLegacy {
		return prev.PreviousHash
	}
	return prev.Hash
}

// Store persists blocks for a ledger
type Store interface {
	// Load returns all stored blocks in index order
	Load() ([]models.Block, error)
	// Append durably stores a new block
	Append(block models.Block) error
	// Reset discards every stored block and stores genesis
	Reset(genesis models.Block) error
}

// Options configures a Ledger. The zero value is usable.
type Options struct {
	Name           string
	Clock          Clock
	LinkRule       LinkRule
	GenesisPayload any

	// Collection names the payload field holding a list of records, if any
	Collection string
	IDField    string

	// OnAppend is called with every new block once it is visible
	OnAppend func(block models.Block)
}

// Ledger is an append-only, hash-chained sequence of blocks.
// Appends are serialized; reads work on consistent snapshots.
type Ledger struct {
	mu     sync.RWMutex
	blocks []models.Block
	store  Store
	opts   Options
}

// New creates an in-memory ledger holding only a genesis block.
// It fails only when a configured genesis payload cannot be encoded.
func New(opts Options) (*Ledger, error) {
	l := &Ledger{opts: opts}
	genesis, err := l.newGenesis()
	if err != nil {
		return nil, err
	}
	l.blocks = []models.Block{genesis}
	return l, nil
}

// Open creates a ledger backed by store. An empty store receives a new
// genesis block; a non-empty one is loaded and must validate.
func Open(store Store, opts Options) (*Ledger, error) {
	l := &Ledger{store: store, opts: opts}

	blocks, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}

	if len(blocks) == 0 {
		genesis, err := l.newGenesis()
		if err != nil {
			return nil, err
		}
		if err := store.Reset(genesis); err != nil {
			return nil, fmt.Errorf("failed to store genesis block: %w", err)
		}
		l.logf("Created genesis block %s", genesis.Hash)
		l.blocks = []models.Block{genesis}
		return l, nil
	}

	if res := ValidateChain(blocks, opts.LinkRule); !res.Valid {
		return nil, fmt.Errorf("%w: block %d: %s", ErrIntegrity, res.FirstBadIndex, res.Reason)
	}
	l.logf("Loaded %d blocks", len(blocks))
	l.blocks = blocks
	return l, nil
}

// Name returns the configured ledger name
func (l *Ledger) Name() string {
	return l.opts.Name
}

// LinkRule returns the chaining rule used by the ledger
func (l *Ledger) LinkRule() LinkRule {
	return l.opts.LinkRule
}

// Append hashes payload into a new block at the end of the chain and returns it
func (l *Ledger) Append(payload any) (models.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.blocks) == 0 {
		return models.Block{}, ErrEmptyLedger
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return models.Block{}, err
	}

	prev := l.blocks[len(l.blocks)-1]
	ts := l.clock().Now()
	if ts.Before(prev.Timestamp) {
		ts = prev.Timestamp
	}

	block := models.Block{
		Index:        prev.Index + 1,
		PreviousHash: l.opts.LinkRule.link(prev),
		Timestamp:    ts,
		Payload:      canonical,
	}
	block.Hash = hashCanonical(block.Index, block.PreviousHash, block.Timestamp, canonical)

	if l.store != nil {
		if err := l.store.Append(block); err != nil {
			return models.Block{}, fmt.Errorf("failed to persist block %d: %w", block.Index, err)
		}
	}

	// Never written again, so snapshots may share the backing array
	l.blocks = append(l.blocks, block)

	if l.opts.OnAppend != nil {
		l.opts.OnAppend(block.Clone())
	}
	return block.Clone(), nil
}

// Reset discards the chain and starts over from a fresh genesis block
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	genesis, err := l.newGenesis()
	if err != nil {
		return err
	}
	if l.store != nil {
		if err := l.store.Reset(genesis); err != nil {
			return fmt.Errorf("failed to reset store: %w", err)
		}
	}
	l.blocks = []models.Block{genesis}
	l.logf("Reset to genesis block %s", genesis.Hash)
	return nil
}

// Validate checks the integrity of the current chain
func (l *Ledger) Validate() models.ValidationResult {
	return ValidateChain(l.snapshot(), l.opts.LinkRule)
}

// Chain returns a copy of every block in order
func (l *Ledger) Chain() []models.Block {
	blocks := l.snapshot()
	out := make([]models.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// Len returns the number of blocks including genesis
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Latest returns the last block
func (l *Ledger) Latest() (models.Block, error) {
	blocks := l.snapshot()
	if len(blocks) == 0 {
		return models.Block{}, ErrEmptyLedger
	}
	return blocks[len(blocks)-1].Clone(), nil
}

// BlockAt returns the block at the given index
func (l *Ledger) BlockAt(index int64) (models.Block, error) {
	blocks := l.snapshot()
	if index < 0 || index >= int64(len(blocks)) {
		return models.Block{}, ErrNotFound
	}
	return blocks[index].Clone(), nil
}

// BlockByHash returns the block with the given hash
func (l *Ledger) BlockByHash(hash string) (models.Block, error) {
	for _, b := range l.snapshot() {
		if b.Hash == hash {
			return b.Clone(), nil
		}
	}
	return models.Block{}, ErrNotFound
}

// snapshot returns the current chain. The slice must not be modified.
func (l *Ledger) snapshot() []models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[:len(l.blocks):len(l.blocks)]
}

func (l *Ledger) newGenesis() (models.Block, error) {
	payload := l.opts.GenesisPayload
	if payload == nil {
		payload = DefaultGenesisPayload()
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return models.Block{}, fmt.Errorf("invalid genesis payload: %w", err)
	}

	genesis := models.Block{
		Index:        0,
		PreviousHash: models.GenesisLink,
		Timestamp:    l.clock().Now(),
		Payload:      canonical,
	}
	genesis.Hash = hashCanonical(genesis.Index, genesis.PreviousHash, genesis.Timestamp, canonical)
	return genesis, nil
}

func (l *Ledger) clock() Clock {
	if l.opts.Clock == nil {
		return SystemClock{}
	}
	return l.opts.Clock
}

func (l *Ledger) logf(format string, args ...any) {
	name := l.opts.Name
	if name == "" {
		name = "ledger"
	}
	log.Printf("[%s] "+format, append([]any{name}, args...)...)
}
