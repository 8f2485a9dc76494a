package ledger

import (
	"fmt"

	"github.com/thanhnp/record-ledger/internal/models"
)

// ValidateChain checks every block of chain and reports the first violation.
//
// The genesis block must have index 0, the sentinel link and a matching hash.
// Every later block must follow its predecessor's index, carry the link
// dictated by rule and hash to its stored value, checked in that order.
func ValidateChain(chain []models.Block, rule LinkRule) models.ValidationResult {
	res := models.ValidationResult{Valid: true, FirstBadIndex: -1, Length: len(chain)}

	if len(chain) == 0 {
		return fail(res, 0, ErrEmptyLedger.Error())
	}

	genesis := chain[0]
	if genesis.Index != 0 {
		return fail(res, 0, fmt.Sprintf("genesis index is %d", genesis.Index))
	}
	if genesis.PreviousHash != models.GenesisLink {
		return fail(res, 0, fmt.Sprintf("genesis previous link is %q", genesis.PreviousHash))
	}
	if reason := checkHash(genesis); reason != "" {
		return fail(res, 0, reason)
	}

	for i := 1; i < len(chain); i++ {
		current, previous := chain[i], chain[i-1]

		if current.Index != previous.Index+1 {
			return fail(res, int64(i), fmt.Sprintf("invalid index: expected %d, got %d", previous.Index+1, current.Index))
		}
		if want := rule.link(previous); current.PreviousHash != want {
			return fail(res, int64(i), fmt.Sprintf("invalid previous link: expected %s, got %s", want, current.PreviousHash))
		}
		if reason := checkHash(current); reason != "" {
			return fail(res, int64(i), reason)
		}
	}

	return res
}

func checkHash(block models.Block) string {
	expected, err := ComputeHash(block)
	if err != nil {
		return err.Error()
	}
	if block.Hash != expected {
		return fmt.Sprintf("invalid hash: expected %s, got %s", expected, block.Hash)
	}
	return ""
}

func fail(res models.ValidationResult, index int64, reason string) models.ValidationResult {
	res.Valid = false
	res.FirstBadIndex = index
	res.Reason = reason
	return res
}
