package models

import (
	"encoding/json"
	"time"
)

// GenesisLink is the previous link carried by the genesis block
const GenesisLink = "0"

// Block represents one entry of a hash-chained ledger
type Block struct {
	Index        int64           `json:"index"`
	PreviousHash string          `json:"previous_hash"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"payload"`
	Hash         string          `json:"hash"`
}

// Clone returns a copy of the block that shares no memory with b
func (b Block) Clone() Block {
	if b.Payload != nil {
		p := make(json.RawMessage, len(b.Payload))
		copy(p, b.Payload)
		b.Payload = p
	}
	return b
}
