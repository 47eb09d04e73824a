package mmcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeal_Roundtrip(t *testing.T) {
	priv, err := NewRandomScalar()
	require.NoError(t, err)
	pub := MulBase(priv)

	msg := []byte("escrow share payload")
	box, err := Seal(pub, msg)
	require.NoError(t, err)
	require.Greater(t, len(box), sealMinBytes)

	got, err := OpenSealed(priv, box)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestSeal_WrongRecipientFails(t *testing.T) {
	priv, err := NewRandomScalar()
	require.NoError(t, err)
	other, err := NewRandomScalar()
	require.NoError(t, err)

	box, err := Seal(MulBase(priv), []byte("secret"))
	require.NoError(t, err)

	_, err = OpenSealed(other, box)
	require.Error(t, err)
}

func TestSeal_TamperedBoxFails(t *testing.T) {
	priv, err := NewRandomScalar()
	require.NoError(t, err)

	box, err := Seal(MulBase(priv), []byte("secret"))
	require.NoError(t, err)

	box[len(box)-1] ^= 0x01
	_, err = OpenSealed(priv, box)
	require.Error(t, err)
}

func TestSeal_ShortBoxRejected(t *testing.T) {
	priv, err := NewRandomScalar()
	require.NoError(t, err)

	_, err = OpenSealed(priv, make([]byte, sealMinBytes-1))
	require.Error(t, err)
}
