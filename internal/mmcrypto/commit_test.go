package mmcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommit_OpenRoundtrip(t *testing.T) {
	nonce, err := NewCommitNonce()
	require.NoError(t, err)

	c, err := Commit("test/commit", nonce, []byte("deck"), []byte("perm"))
	require.NoError(t, err)
	require.Len(t, c, CommitBytes)

	require.True(t, OpenCommit(c, "test/commit", nonce, []byte("deck"), []byte("perm")))
}

func TestCommit_Binding(t *testing.T) {
	nonce, err := NewCommitNonce()
	require.NoError(t, err)

	c, err := Commit("test/commit", nonce, []byte("data"))
	require.NoError(t, err)

	require.False(t, OpenCommit(c, "test/commit", nonce, []byte("datb")))
	require.False(t, OpenCommit(c, "test/other", nonce, []byte("data")))

	// Length-prefixed fields: shifting bytes between fields must not open.
	c2, err := Commit("test/commit", nonce, []byte("ab"), []byte("c"))
	require.NoError(t, err)
	require.False(t, OpenCommit(c2, "test/commit", nonce, []byte("a"), []byte("bc")))
}

func TestCommit_HidingAcrossNonces(t *testing.T) {
	n1, err := NewCommitNonce()
	require.NoError(t, err)
	n2, err := NewCommitNonce()
	require.NoError(t, err)
	require.NotEqual(t, n1, n2)

	c1, err := Commit("test/commit", n1, []byte("data"))
	require.NoError(t, err)
	c2, err := Commit("test/commit", n2, []byte("data"))
	require.NoError(t, err)
	require.NotEqual(t, c1, c2)
}

func TestCommit_NonceLengthEnforced(t *testing.T) {
	_, err := Commit("test/commit", []byte("short"), []byte("data"))
	require.Error(t, err)

	nonce, err := NewCommitNonce()
	require.NoError(t, err)
	c, err := Commit("test/commit", nonce, []byte("data"))
	require.NoError(t, err)
	require.False(t, OpenCommit(c, "test/commit", nonce[:16], []byte("data")))
}
