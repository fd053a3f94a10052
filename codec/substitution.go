package codec

// en and de are a fixed byte-for-byte substitution applied over the
// standard base64 alphabet, the same trick the reference codec uses to
// keep tokens ASCII-safe while not looking like plain base64 on the wire.
// The scheme is interchangeable (spec §4.A) — swap these tables, or the
// whole substitute() pair, to change the obfuscation without touching
// anything that calls Encode/Decode.
var (
	enAlphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/")
	deAlphabet = []byte("dhULNVGsuAk/MxH6ibjcEfRqDWYznXBe9Pl7+SKoZ8pJaICgrQO0mF21yv345wtT")

	enMap = buildSubstitution(enAlphabet, deAlphabet)
	deMap = buildSubstitution(deAlphabet, enAlphabet)
)

func buildSubstitution(from, to []byte) map[byte]byte {
	m := make(map[byte]byte, len(from))
	for i := range from {
		m[from[i]] = to[i]
	}
	return m
}

func substitute(data []byte, table map[byte]byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		if r, ok := table[b]; ok {
			out[i] = r
		} else {
			out[i] = b
		}
	}
	return out
}
