package gridstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskBuilder_EmptyMaskIsZero(t *testing.T) {
	b := NewMaskBuilder()
	assert.Equal(t, uint32(0), b.Mask())
}

func TestMaskBuilder_SetCoveredFoldsToBits(t *testing.T) {
	b := NewMaskBuilder().SetCovered(0).SetCovered(2)
	assert.Equal(t, uint32(0b101), b.Mask())
}

func TestMaskBuilder_SetCoveredIsChainable(t *testing.T) {
	b := NewMaskBuilder()
	ret := b.SetCovered(1)
	assert.Same(t, b, ret)
}

func TestMaskBuilder_PanicsOnOutOfRangePosition(t *testing.T) {
	b := NewMaskBuilder()
	assert.Panics(t, func() {
		b.SetCovered(32)
	})
}

func TestMaskBuilder_HighestBitFits(t *testing.T) {
	b := NewMaskBuilder().SetCovered(31)
	assert.Equal(t, uint32(1)<<31, b.Mask())
}
