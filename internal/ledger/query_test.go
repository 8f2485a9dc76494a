package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByIDNotFound(t *testing.T) {
	l := threeBlockChain(t)
	_, ok := l.FindByID("3")
	assert.False(t, ok)

	rec, ok := l.FindByID("2")
	require.True(t, ok)
	assert.Equal(t, int64(2), rec.BlockIndex)
	assert.Equal(t, "Jane Doe", rec.Value.(map[string]any)["name"])
}

func TestRecordsWithinCollection(t *testing.T) {
	l := newTestLedger(t, Options{
		GenesisPayload: map[string]any{"refugees": []any{}},
		Collection:     "refugees",
	})
	_, err := l.Append(map[string]any{"refugees": []any{johnDoe(), janeDoe()}})
	require.NoError(t, err)
	_, err = l.Append(map[string]any{"refugees": []any{map[string]any{"id": 1, "name": "John Doe (moved)"}}})
	require.NoError(t, err)

	var names []string
	for rec := range l.Records(FieldEquals("id", "1")) {
		names = append(names, rec.Value.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"John Doe", "John Doe (moved)"}, names)

	// first match wins, scanning blocks then entries in order
	rec, ok := l.FindByID("1")
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.BlockIndex)
	assert.Equal(t, "John Doe", rec.Value.(map[string]any)["name"])
}

func TestRecordsTopLevelArray(t *testing.T) {
	l := newTestLedger(t, Options{})
	_, err := l.Append([]any{map[string]any{"id": "a"}, map[string]any{"id": "b"}})
	require.NoError(t, err)

	count := 0
	for range l.Records(nil) {
		count++
	}
	// genesis object + two array entries
	assert.Equal(t, 3, count)

	rec, ok := l.Find(FieldEquals("id", "b"))
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.BlockIndex)
}

func TestRecordsIsRestartableAndStopsEarly(t *testing.T) {
	l := threeBlockChain(t)
	seq := l.Records(nil)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
		break
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, 1, second)

	_, err := l.Append(johnDoe())
	require.NoError(t, err)
	third := 0
	for range seq {
		third++
	}
	assert.Equal(t, 4, third)
}

func TestFieldEquals(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"id":"7"}`), &v))
	assert.True(t, FieldEquals("id", "7")(v))

	v, err := decodeJSON([]byte(`{"id":7,"active":true}`))
	require.NoError(t, err)
	assert.True(t, FieldEquals("id", "7")(v))
	assert.True(t, FieldEquals("active", "true")(v))
	assert.False(t, FieldEquals("id", "8")(v))
	assert.False(t, FieldEquals("missing", "7")(v))
	assert.False(t, FieldEquals("id", "7")([]any{}))
}
