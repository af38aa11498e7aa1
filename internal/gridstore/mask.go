package gridstore

import "github.com/bits-and-blooms/bitset"

// MaskBuilder accumulates which query tokens a phrase covers and folds the
// result down to the uint32 PhrasematchSubquery.Mask the coalesce core
// operates on. It uses a bitset.BitSet for the bookkeeping so that a
// phrase matcher building subqueries token-by-token doesn't need to hand-
// roll bit-shift arithmetic; the fold to uint32 is exact as long as no bit
// position >= 32 is ever set; SetCovered panics otherwise (mask bit-width
// is enforced at construction, per spec.md §9).
type MaskBuilder struct {
	bits *bitset.BitSet
}

// NewMaskBuilder returns an empty MaskBuilder.
func NewMaskBuilder() *MaskBuilder {
	return &MaskBuilder{bits: bitset.New(32)}
}

// SetCovered marks tokenPosition as covered by this phrase.
func (b *MaskBuilder) SetCovered(tokenPosition uint) *MaskBuilder {
	if tokenPosition >= 32 {
		panic("gridstore: token position does not fit in a 32-bit mask")
	}
	b.bits.Set(tokenPosition)
	return b
}

// Mask folds the accumulated bits down to the PhrasematchSubquery.Mask
// representation.
func (b *MaskBuilder) Mask() uint32 {
	words := b.bits.Bytes()
	if len(words) == 0 {
		return 0
	}
	return uint32(words[0])
}
