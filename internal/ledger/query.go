package ledger

import (
	"encoding/json"
	"iter"
	"strconv"

	"github.com/thanhnp/record-ledger/internal/models"
)

// Predicate selects payload entries
type Predicate func(value any) bool

// FieldEquals matches JSON objects whose field renders as want.
// Strings compare by value, numbers and booleans by their JSON text.
func FieldEquals(field, want string) Predicate {
	return func(value any) bool {
		obj, ok := value.(map[string]any)
		if !ok {
			return false
		}
		switch v := obj[field].(type) {
		case string:
			return v == want
		case json.Number:
			return v.String() == want
		case bool:
			return strconv.FormatBool(v) == want
		default:
			return false
		}
	}
}

// Records yields the payload entries matching pred, scanning blocks in order and
// entries within a block in order. A nil pred matches everything. Each range
// over the sequence scans the chain as it is at that moment.
func (l *Ledger) Records(pred Predicate) iter.Seq[models.Record] {
	return func(yield func(models.Record) bool) {
		for _, block := range l.snapshot() {
			entries, err := payloadEntries(block.Payload, l.opts.Collection)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if pred != nil && !pred(entry) {
					continue
				}
				if !yield(models.Record{BlockIndex: block.Index, BlockHash: block.Hash, Value: entry}) {
					return
				}
			}
		}
	}
}

// Find returns the first entry matching pred
func (l *Ledger) Find(pred Predicate) (models.Record, bool) {
	for rec := range l.Records(pred) {
		return rec, true
	}
	return models.Record{}, false
}

// FindByID returns the first entry whose id field equals id
func (l *Ledger) FindByID(id string) (models.Record, bool) {
	field := l.opts.IDField
	if field == "" {
		field = DefaultIDField
	}
	return l.Find(FieldEquals(field, id))
}

// payloadEntries splits a payload into records: the list under collection when
// present, else the elements of a top-level array, else the payload itself
func payloadEntries(payload json.RawMessage, collection string) ([]any, error) {
	v, err := decodeJSON(payload)
	if err != nil {
		return nil, err
	}
	if collection != "" {
		if obj, ok := v.(map[string]any); ok {
			if list, ok := obj[collection].([]any); ok {
				return list, nil
			}
		}
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}
