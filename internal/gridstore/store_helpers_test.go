package gridstore

import (
	"context"
	"errors"
)

// failingStore is a Store that always fails GetMatching, for exercising
// Coalesce's error-propagation path without touching a real backend.
type failingStore struct{}

func (failingStore) GetMatching(context.Context, MatchKey, MatchOpts) (MatchIterator, error) {
	return nil, errors.New("simulated store failure")
}
