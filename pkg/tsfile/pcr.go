package tsfile

// PCRClockFrequency is the PCR counter's tick rate (spec.md §3).
const PCRClockFrequency = 27_000_000

// PCRMaxValue is the modulus of the 42-bit PCR counter: (1<<33)*300+299
// (spec.md §3).
const PCRMaxValue = (uint64(1)<<33)*300 + 299

// PCRSub computes b-a modulo PCRMaxValue, treating the PCR clock as
// monotonic and wrapping (spec.md §3, §8 "PCR arithmetic"):
//
//	sub(a, b) = b-a if b >= a, else b + M - a + 1
func PCRSub(a, b uint64) uint64 {
	if b >= a {
		return b - a
	}
	return b + PCRMaxValue - a + 1
}
