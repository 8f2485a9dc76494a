package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	health := newTestLedger(t, Options{Name: "health"})
	refugees := newTestLedger(t, Options{Name: "refugees"})
	r.Register("refugees", refugees)
	r.Register("health", health)

	got, err := r.Get("health")
	require.NoError(t, err)
	assert.Same(t, health, got)

	_, err = r.Get("payroll")
	assert.ErrorIs(t, err, ErrUnknownLedger)

	assert.Equal(t, []string{"health", "refugees"}, r.Names())
}
