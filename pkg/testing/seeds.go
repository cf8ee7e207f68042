package testing

import (
	"fmt"
	"os"
	"strconv"
	"testing"
)

const (
	// EnvSeed sets the first seed used by ForEachSeed and NewTestAppWithT.
	EnvSeed = "MODELKIT_SEED"
	// EnvIterations sets how many seeds ForEachSeed runs.
	EnvIterations = "MODELKIT_ITERATIONS"
)

func seedFromEnv() uint64 {
	seed, err := strconv.ParseUint(os.Getenv(EnvSeed), 10, 64)
	if err != nil {
		return 0
	}
	return seed
}

func iterationsFromEnv(fallback int) int {
	n, err := strconv.Atoi(os.Getenv(EnvIterations))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// ForEachSeed runs fn as a subtest named after its seed, once per seed,
// each with a fresh TestApp. It runs iterations seeds starting at
// MODELKIT_SEED; MODELKIT_ITERATIONS overrides iterations. A failure
// names the seed to rerun with.
func ForEachSeed(t *testing.T, iterations int, fn func(t *testing.T, app *TestApp)) {
	t.Helper()
	first := seedFromEnv()
	n := iterationsFromEnv(max(iterations, 1))
	for i := 0; i < n; i++ {
		seed := first + uint64(i)
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			app := NewTestAppWithSeed(t, seed)
			fn(t, app)
			if t.Failed() {
				t.Logf("rerun with %s=%d %s=1", EnvSeed, seed, EnvIterations)
			}
		})
	}
}
