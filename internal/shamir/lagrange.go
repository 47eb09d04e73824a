package shamir

import (
	"fmt"

	"github.com/cyotee/manamesh-sub000/internal/mmcrypto"
)

// LagrangeAtZero returns the Lagrange coefficients (mod q) for
// reconstructing f(0) from shares (x_i, f(x_i)) at distinct non-zero
// indices:
//
//	λ_i = Π_{j≠i} (0 - x_j) / (x_i - x_j)
func LagrangeAtZero(indices []uint32) ([]mmcrypto.Scalar, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("lagrange: empty indices")
	}
	seen := map[uint32]bool{}
	for _, idx := range indices {
		if idx == 0 {
			return nil, fmt.Errorf("lagrange: index 0 not allowed")
		}
		if seen[idx] {
			return nil, fmt.Errorf("lagrange: duplicate index %d", idx)
		}
		seen[idx] = true
	}

	lambdas := make([]mmcrypto.Scalar, 0, len(indices))
	for _, xiU := range indices {
		xi := mmcrypto.ScalarFromUint64(uint64(xiU))
		num := mmcrypto.ScalarOne()
		den := mmcrypto.ScalarOne()
		for _, xjU := range indices {
			if xjU == xiU {
				continue
			}
			xj := mmcrypto.ScalarFromUint64(uint64(xjU))
			num = mmcrypto.ScalarMul(num, mmcrypto.ScalarNeg(xj)) // (0 - xj)
			den = mmcrypto.ScalarMul(den, mmcrypto.ScalarSub(xi, xj))
		}
		denInv, err := mmcrypto.ScalarInv(den)
		if err != nil {
			return nil, err
		}
		lambdas = append(lambdas, mmcrypto.ScalarMul(num, denInv))
	}
	return lambdas, nil
}
