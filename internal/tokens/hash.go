package tokens

// Polynomial hash parameters.
const (
	hashBase uint64 = 31
	hashMod  uint64 = 1_000_000_007
)

// verifySamples is the number of positions checked by the sparse equality
// pass that rejects hash collisions.
const verifySamples = 16

// tokenValue maps a token into [0, hashMod) so negative ids hash consistently.
func tokenValue(t Token) uint64 {
	v := int64(t) % int64(hashMod)
	if v < 0 {
		v += int64(hashMod)
	}
	return uint64(v)
}

// RollingHash computes the polynomial hash of seq[start:start+length] in
// linear time. The range is clamped to the sequence bounds.
func RollingHash(seq Sequence, start, length int) uint64 {
	if start < 0 {
		start = 0
	}
	end := start + length
	if end > len(seq) {
		end = len(seq)
	}
	var hash uint64
	power := uint64(1)
	for i := start; i < end; i++ {
		hash = (hash + tokenValue(seq[i])*power) % hashMod
		power = (power * hashBase) % hashMod
	}
	return hash
}

// PrefixHasher caches the hash of every prefix of a sequence so that prefix
// hashes can be read in constant time. PrefixHash(n) equals
// RollingHash(seq, 0, n).
type PrefixHasher struct {
	prefix []uint64
}

// NewPrefixHasher builds the prefix table for seq in one pass.
func NewPrefixHasher(seq Sequence) *PrefixHasher {
	prefix := make([]uint64, len(seq)+1)
	power := uint64(1)
	for i, t := range seq {
		prefix[i+1] = (prefix[i] + tokenValue(t)*power) % hashMod
		power = (power * hashBase) % hashMod
	}
	return &PrefixHasher{prefix: prefix}
}

// PrefixHash returns the hash of the first n tokens. n is clamped to the
// sequence length.
func (h *PrefixHasher) PrefixHash(n int) uint64 {
	if n < 0 {
		n = 0
	}
	if n >= len(h.prefix) {
		n = len(h.prefix) - 1
	}
	return h.prefix[n]
}

// Len returns the length of the hashed sequence.
func (h *PrefixHasher) Len() int { return len(h.prefix) - 1 }

// LongestCommonPrefix returns the length of the longest common prefix of a
// and b. It binary-searches the prefix length comparing prefix hashes at each
// probe, and rejects collisions with a sparse equality check that samples
// every max(1, mid/16)th position. It returns 0 when either sequence is empty
// or the first tokens differ.
func LongestCommonPrefix(a, b Sequence) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if a[0] != b[0] {
		return 0
	}
	maxLen := min(len(a), len(b))
	ha, hb := NewPrefixHasher(a), NewPrefixHasher(b)

	lo, hi := 1, maxLen
	result := 0
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if ha.PrefixHash(mid) == hb.PrefixHash(mid) && sparseEqual(a, b, mid) {
			result = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return result
}

// sparseEqual compares a[:n] and b[:n] at a stride of max(1, n/16) and always
// includes the last position of the range.
func sparseEqual(a, b Sequence, n int) bool {
	stride := max(1, n/verifySamples)
	for i := 0; i < n; i += stride {
		if a[i] != b[i] {
			return false
		}
	}
	return a[n-1] == b[n-1]
}
