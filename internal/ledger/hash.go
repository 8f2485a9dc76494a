package ledger

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/thanhnp/record-ledger/internal/models"
)

// FormatTimestamp renders a block timestamp the way it enters the hash
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// HashBlock computes the SHA-256 hex digest of a block's content.
//
// The hashed bytes are the canonical JSON array
// [index, "previous_link", "timestamp", payload].
func HashBlock(index int64, previousLink string, timestamp time.Time, payload any) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return hashCanonical(index, previousLink, timestamp, canonical), nil
}

// ComputeHash recomputes the hash of a stored block from its fields
func ComputeHash(block models.Block) (string, error) {
	return HashBlock(block.Index, block.PreviousHash, block.Timestamp, block.Payload)
}

func hashCanonical(index int64, previousLink string, timestamp time.Time, payload []byte) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.WriteString(strconv.FormatInt(index, 10))
	buf.WriteByte(',')
	buf.Write(quote(previousLink))
	buf.WriteByte(',')
	buf.Write(quote(FormatTimestamp(timestamp)))
	buf.WriteByte(',')
	buf.Write(payload)
	buf.WriteByte(']')

	return hex.EncodeToString(chainhash.HashB(buf.Bytes()))
}

func quote(s string) []byte {
	// strings always encode
	out, _ := encodeJSON(s)
	return out
}
