package session

import (
	"math/rand"
	"time"
)

// SequentialOrder returns the identity permutation [0, 1, ..., n-1].
func SequentialOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// RandomOrder returns a uniformly random permutation of [0, n) produced by a
// Fisher-Yates shuffle over a fresh slice. A nil rnd falls back to a
// time-seeded source.
func RandomOrder(n int, rnd *rand.Rand) []int {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	order := SequentialOrder(n)
	for i := n - 1; i >= 1; i-- {
		j := rnd.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
