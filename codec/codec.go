// Package codec implements the obfuscation layer (spec component A): a
// symmetric pair of pure functions over short ASCII strings used for every
// protocol token (command verb, target, connection id, status) that
// crosses the wire in an HTTP header. Payload bytes carried in request and
// READ response bodies are never run through this codec — only the
// protocol's own tokens are.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/go-zoox/random"
)

// minPadLength/maxPadLength bound the random junk record lengths mixed into every
// encoded token, purely to vary the length of the resulting string.
const (
	minPadLength = 5
	maxPadLength = 20
)

// Encode turns a plaintext token into an ASCII-safe string. It never
// fails: nothing in the encoding pipeline returns an error, so callers
// have no error to handle.
func Encode(s string) string {
	plain := blvEncode([]byte(s), randomPad(), randomPad())
	encoded := base64.StdEncoding.EncodeToString(plain)
	return string(substitute([]byte(encoded), enMap))
}

// Decode reverses Encode. It returns an error for tokens that are not
// valid codec output — truncated, not base64 after de-substitution, or
// missing a value record.
func Decode(token string) (string, error) {
	debased := substitute([]byte(token), deMap)

	plain, err := base64.StdEncoding.DecodeString(string(debased))
	if err != nil {
		return "", fmt.Errorf("codec: invalid base64: %w", err)
	}

	value, err := blvDecode(plain)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func randomPad() []byte {
	n := minPadLength + random.Int(maxPadLength-minPadLength)
	return []byte(random.String(n))
}
