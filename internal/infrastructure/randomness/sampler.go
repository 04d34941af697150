package randomness

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/LavaJover/shvark-lottery-service/internal/domain"
)

// CryptoSampler draws winners with a partial Fisher-Yates shuffle over crypto/rand.
type CryptoSampler struct{}

func NewCryptoSampler() *CryptoSampler {
	return &CryptoSampler{}
}

func (CryptoSampler) Draw(ctx context.Context, candidates []string, k int) ([]string, error) {
	if k < 0 || k > len(candidates) {
		return nil, domain.NewValidationError(fmt.Errorf("cannot draw %d of %d candidates", k, len(candidates)))
	}
	pool := append([]string(nil), candidates...)
	for i := 0; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool)-i)))
		if err != nil {
			return nil, fmt.Errorf("read random: %w", err)
		}
		j := i + int(n.Int64())
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}
