package mmshuffle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromSeed_DeterministicBijection(t *testing.T) {
	seed := bytes.Repeat([]byte{0xab}, SeedBytes)

	p1, err := FromSeed(seed, 52)
	require.NoError(t, err)
	p2, err := FromSeed(seed, 52)
	require.NoError(t, err)
	require.Equal(t, p1, p2)
	require.NoError(t, p1.Validate(52))

	other, err := FromSeed(bytes.Repeat([]byte{0xac}, SeedBytes), 52)
	require.NoError(t, err)
	require.NotEqual(t, p1, other)
}

func TestPermutation_Validate(t *testing.T) {
	require.NoError(t, Identity(5).Validate(5))
	require.Error(t, Identity(5).Validate(4))
	require.Error(t, Permutation{0, 1, 1}.Validate(3))
	require.Error(t, Permutation{0, 1, 3}.Validate(3))
}

func TestPermutation_Apply(t *testing.T) {
	cards := [][]byte{{10}, {11}, {12}}
	p := Permutation{2, 0, 1}

	out, err := p.Apply(cards)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{12}, {10}, {11}}, out)

	_, err = p.Apply(cards[:2])
	require.Error(t, err)
}

func TestPermutation_EncodeDecode(t *testing.T) {
	p := Permutation{3, 1, 0, 2}
	enc := p.Encode()

	dec, err := DecodePermutation(enc)
	require.NoError(t, err)
	require.Equal(t, p, dec)

	_, err = DecodePermutation(enc[:len(enc)-1])
	require.Error(t, err)
	_, err = DecodePermutation(append(enc, 0x00))
	require.Error(t, err)
	_, err = DecodePermutation([]byte{1, 2})
	require.Error(t, err)
}
