package gridstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceSingle_OneContextPerFeature(t *testing.T) {
	store := NewMemoryStore([]StoreEntryBuildingBlock{
		{
			MatchKey: "main st",
			Entries: []MatchEntry{
				{GridEntry: GridEntry{ID: 1, X: 1, Y: 1, Relev: 1.0}, Scoredist: 1.0},
				{GridEntry: GridEntry{ID: 2, X: 2, Y: 2, Relev: 0.9}, Scoredist: 1.0},
			},
		},
	})
	sq := PhrasematchSubquery{Store: store, Weight: 1.0, MatchKey: "main st", Zoom: 14, Mask: 1}
	opts := MatchOpts{Zoom: 14}

	contexts, err := coalesceSingle(t.Context(), sq, opts)
	require.NoError(t, err)
	require.Len(t, contexts, 2)
	for _, c := range contexts {
		assert.Len(t, c.Entries, 1, "single-phrase contexts must have exactly one entry")
	}
	assert.Equal(t, uint32(1), contexts[0].Entries[0].ID, "higher relev sorts first")
}

func TestCoalesceSingle_DropsLowerScoredistDuplicateFeature(t *testing.T) {
	store := NewMemoryStore([]StoreEntryBuildingBlock{
		{
			MatchKey: "main st",
			Entries: []MatchEntry{
				{GridEntry: GridEntry{ID: 1, Relev: 1.0}, Scoredist: 5.0},
				{GridEntry: GridEntry{ID: 1, Relev: 1.0}, Scoredist: 2.0},
			},
		},
	})
	sq := PhrasematchSubquery{Store: store, Weight: 1.0, MatchKey: "main st", Zoom: 14, Mask: 1}
	opts := MatchOpts{Zoom: 14}

	contexts, err := coalesceSingle(t.Context(), sq, opts)
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	assert.Equal(t, 5.0, contexts[0].Entries[0].Scoredist)
}

func TestCoalesceSingle_PrunesBeyondRelevanceWindow(t *testing.T) {
	orig := RelevanceWindow
	RelevanceWindow = 0.1
	defer func() { RelevanceWindow = orig }()

	store := NewMemoryStore([]StoreEntryBuildingBlock{
		{
			MatchKey: "main st",
			Entries: []MatchEntry{
				{GridEntry: GridEntry{ID: 1, Relev: 1.0}},
				{GridEntry: GridEntry{ID: 2, Relev: 0.5}},
			},
		},
	})
	sq := PhrasematchSubquery{Store: store, Weight: 1.0, MatchKey: "main st", Zoom: 14, Mask: 1}
	opts := MatchOpts{Zoom: 14}

	contexts, err := coalesceSingle(t.Context(), sq, opts)
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	assert.Equal(t, uint32(1), contexts[0].Entries[0].ID)
}

func TestCoalesceSingle_CapsAtMaxContexts(t *testing.T) {
	origMax := MaxContexts
	MaxContexts = 2
	defer func() { MaxContexts = origMax }()

	entries := make([]MatchEntry, 0, 5)
	for i := uint32(1); i <= 5; i++ {
		entries = append(entries, MatchEntry{GridEntry: GridEntry{ID: i, Relev: 1.0 - float64(i)*0.001}})
	}
	store := NewMemoryStore([]StoreEntryBuildingBlock{{MatchKey: "main st", Entries: entries}})
	sq := PhrasematchSubquery{Store: store, Weight: 1.0, MatchKey: "main st", Zoom: 14, Mask: 1}
	opts := MatchOpts{Zoom: 14}

	contexts, err := coalesceSingle(t.Context(), sq, opts)
	require.NoError(t, err)
	assert.Len(t, contexts, 2)
}
