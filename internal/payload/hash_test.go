package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterministic(t *testing.T) {
	a := Map{"a": Int(1), "b": Seq{String("x")}}
	b := Map{"b": Seq{String("x")}, "a": Int(1)}

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestContentHashDiffers(t *testing.T) {
	ha, err := ContentHash(Map{"v": Int(1)})
	require.NoError(t, err)
	hb, err := ContentHash(Map{"v": Int(2)})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestContentHashDomainSeparated(t *testing.T) {
	canonical, err := MarshalCanonical(Map{})
	require.NoError(t, err)
	h, err := ContentHash(Map{})
	require.NoError(t, err)
	assert.NotEqual(t, hashWithDomain("other/v1", canonical), h)
	assert.Equal(t, hashWithDomain(DomainPayload, canonical), h)
}

func TestShortHash(t *testing.T) {
	assert.Len(t, ShortHash(Map{}), 12)
	assert.Equal(t, "-", ShortHash(nil))
}
