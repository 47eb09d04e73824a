package shamir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
)

func TestSplitCombine_AnyThresholdSubset(t *testing.T) {
	secret := mmcrypto.ScalarFromUint64(0xdeadbeef)
	shares, commits, err := Split(secret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)
	require.Len(t, commits, 3)

	subsets := [][]int{{0, 1, 2}, {2, 3, 4}, {0, 2, 4}, {4, 1, 3}, {0, 1, 2, 3, 4}}
	for _, idxs := range subsets {
		sub := make([]Share, 0, len(idxs))
		for _, i := range idxs {
			sub = append(sub, shares[i])
		}
		got, err := Combine(sub, 3)
		require.NoError(t, err)
		require.True(t, mmcrypto.ScalarEq(secret, got), "subset %v", idxs)
	}
}

func TestCombine_BelowThresholdRejected(t *testing.T) {
	secret := mmcrypto.ScalarFromUint64(41)
	shares, _, err := Split(secret, 4, 3)
	require.NoError(t, err)

	_, err = Combine(shares[:2], 3)
	require.Error(t, err)
}

func TestCombine_TooFewSharesDisagree(t *testing.T) {
	// Interpolating with fewer points than the polynomial degree needs
	// lands on a different polynomial, not the secret.
	secret := mmcrypto.ScalarFromUint64(123456789)
	shares, _, err := Split(secret, 5, 3)
	require.NoError(t, err)

	got, err := Combine(shares[:2], 2)
	require.NoError(t, err)
	require.False(t, mmcrypto.ScalarEq(secret, got))
}

func TestCombine_DuplicateIndexRejected(t *testing.T) {
	secret := mmcrypto.ScalarFromUint64(7)
	shares, _, err := Split(secret, 3, 2)
	require.NoError(t, err)

	_, err = Combine([]Share{shares[0], shares[0]}, 2)
	require.Error(t, err)
}

func TestSplit_ThresholdFloor(t *testing.T) {
	secret := mmcrypto.ScalarFromUint64(7)
	_, _, err := Split(secret, 5, 1)
	require.Error(t, err)

	_, _, err = Split(secret, 1, 2)
	require.Error(t, err)
}

func TestVerifyShare_FeldmanCommitments(t *testing.T) {
	secret := mmcrypto.ScalarFromUint64(0xc0ffee)
	shares, commits, err := Split(secret, 4, 3)
	require.NoError(t, err)

	for _, sh := range shares {
		ok, err := VerifyShare(commits, sh)
		require.NoError(t, err)
		require.True(t, ok, "share x=%d", sh.X)
	}

	// Commitment to the constant term is the secret's public point.
	require.True(t, mmcrypto.PointEq(commits[0], mmcrypto.MulBase(secret)))

	bad := shares[0]
	bad.S = mmcrypto.ScalarAdd(bad.S, mmcrypto.ScalarOne())
	ok, err := VerifyShare(commits, bad)
	require.NoError(t, err)
	require.False(t, ok)

	wrongX := shares[0]
	wrongX.X = 9
	ok, err = VerifyShare(commits, wrongX)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLagrangeAtZero_Validation(t *testing.T) {
	_, err := LagrangeAtZero(nil)
	require.Error(t, err)
	_, err = LagrangeAtZero([]uint32{0, 1})
	require.Error(t, err)
	_, err = LagrangeAtZero([]uint32{2, 2})
	require.Error(t, err)

	lambdas, err := LagrangeAtZero([]uint32{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, lambdas, 3)
}
