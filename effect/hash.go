package effect

const (
	fnvPrime  = 16777619
	fnvOffset = 2166136261
)

// ComputeHash returns the modified FNV-1 hash of data used as the content
// identifier of stripped shader bytecode.
func ComputeHash(data []byte) uint32 {
	h := uint32(fnvOffset)
	for _, b := range data {
		h = (h ^ uint32(b)) * fnvPrime
	}
	h += h << 13
	h ^= h >> 7
	h += h << 3
	h ^= h >> 17
	h += h << 5
	return h
}
