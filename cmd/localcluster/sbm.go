package main

import "math/rand/v2"

type SBMCommand struct {
	Generate SBMGenerateCommand `cmd:"generate" help:"Generate stochastic block model graphs."`
	Compare  SBMCompareCommand  `cmd:"compare" help:"Compare on disk and in memory local clustering of the generated graphs."`
}

// newRand returns a generator seeded with seed, or randomly seeded if seed is 0.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}
