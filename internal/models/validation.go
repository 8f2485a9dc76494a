package models

// ValidationResult reports the outcome of a chain integrity check.
// FirstBadIndex is -1 when the chain is valid.
type ValidationResult struct {
	Valid         bool   `json:"valid"`
	FirstBadIndex int64  `json:"first_bad_index"`
	Reason        string `json:"reason,omitempty"`
	Length        int    `json:"length"`
}
