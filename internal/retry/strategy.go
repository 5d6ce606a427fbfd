package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy decides how long to wait before retry number n (0-based) and
// whether the retry budget is exhausted.
type Strategy interface {
	Sleep(n uint) (time.Duration, bool)
}

type never struct{}

func NewNever() *never {
	return &never{}
}

func (never) Sleep(uint) (time.Duration, bool) {
	return 0, true
}

// Entropy returns a value in [0, n). It spreads concurrent retries apart.
type Entropy func(n int64) int64

type exponentialBackOff struct {
	base          time.Duration
	max           time.Duration
	maxRetryCount uint
	entropy       Entropy
}

// NewExponentialBackOff waits entropy(min(base*2^n, max)) before retry n and
// gives up after maxRetryCount retries. A nil entropy uses full jitter.
func NewExponentialBackOff(base time.Duration, max time.Duration, maxRetryCount uint, entropy Entropy) *exponentialBackOff {
	if entropy == nil {
		entropy = fullJitter
	}
	return &exponentialBackOff{
		base:          base,
		max:           max,
		maxRetryCount: maxRetryCount,
		entropy:       entropy,
	}
}

func (eb *exponentialBackOff) Sleep(n uint) (time.Duration, bool) {
	if n >= eb.maxRetryCount {
		return 0, true
	}

	ceiling := int64(eb.max)
	if n < 63 {
		if delay, err := checkedMulInt64(int64(1)<<n, int64(eb.base)); err == nil {
			ceiling = smaller(delay, ceiling)
		}
	}
	return time.Duration(eb.entropy(ceiling)), false
}

func fullJitter(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rand.Int63n(n)
}

func smaller[T constraints.Ordered](l T, r T) T {
	if l > r {
		return r
	}
	return l
}

var OverflowError = errors.New("overflow")

func checkedMulInt64(l int64, r int64) (int64, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	if l > math.MaxInt64/r {
		return 0, OverflowError
	}
	return l * r, nil
}
