package models

// Record is a single payload entry found in a ledger
type Record struct {
	BlockIndex int64  `json:"block_index"`
	BlockHash  string `json:"block_hash"`
	Value      any    `json:"value"`
}
