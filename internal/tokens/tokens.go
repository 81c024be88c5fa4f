// Package tokens holds the token types shared by the engine, the truncation
// policy and the session, plus prefix comparison helpers over token sequences.
package tokens

// Token is an engine vocabulary id. Negative values are invalid.
type Token int32

// Sequence is an ordered run of tokens in generation order.
type Sequence []Token

// Clone returns a copy that does not share backing storage with s.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// HasPrefix reports whether p is a prefix of s.
func (s Sequence) HasPrefix(p Sequence) bool {
	if len(p) > len(s) {
		return false
	}
	for i := range p {
		if s[i] != p[i] {
			return false
		}
	}
	return true
}

// HasSuffix reports whether p is a suffix of s.
func (s Sequence) HasSuffix(p Sequence) bool {
	if len(p) > len(s) {
		return false
	}
	off := len(s) - len(p)
	for i := range p {
		if s[off+i] != p[i] {
			return false
		}
	}
	return true
}
