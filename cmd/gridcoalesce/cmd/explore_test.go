package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmen-go/gridcoalesce/internal/gridstore"
)

func TestParseExploreInput_BareContextArray(t *testing.T) {
	contexts := []gridstore.CoalesceContext{
		{Relev: 1.0, Entries: []gridstore.CoalesceEntry{{GridEntry: gridstore.GridEntry{ID: 1}}}},
	}
	data, err := json.Marshal(contexts)
	require.NoError(t, err)

	got, label, err := parseExploreInput(data)
	require.NoError(t, err)
	assert.Equal(t, "coalesce results", label)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].Entries[0].ID)
}

func TestParseExploreInput_ResponseEnvelope(t *testing.T) {
	responses := []exploreResponse{
		{Label: "first", Contexts: []gridstore.CoalesceContext{{Relev: 1.0}}},
		{Label: "second", Contexts: []gridstore.CoalesceContext{{Relev: 0.5}}},
	}
	data, err := json.Marshal(responses)
	require.NoError(t, err)

	got, label, err := parseExploreInput(data)
	require.NoError(t, err)
	assert.Equal(t, "first (+1 more)", label)
	assert.Len(t, got, 2)
}

func TestParseExploreInput_InvalidJSON(t *testing.T) {
	_, _, err := parseExploreInput([]byte("not json"))
	assert.Error(t, err)
}
