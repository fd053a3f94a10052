package connection

import (
	"crypto/rand"
	"encoding/hex"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// IDLength is the length of an id minted by GenerateID. Any scheme
// yielding uniqueness within the process lifetime satisfies spec §4.C;
// nanoid gives us that with a fixed, URL/header-safe alphabet.
const IDLength = 21

// GenerateID mints a fresh connection id for the registry's create()
// (spec §4.C). Ids are opaque to callers — nothing in this codebase
// parses their structure.
func GenerateID() string {
	id, err := nanoid.New(IDLength)
	if err != nil {
		// nanoid.New only fails on a broken crypto/rand source; there is
		// nothing CONNECT's caller could do differently, so fall back to
		// a plain random hex string rather than failing the connection.
		buf := make([]byte, IDLength/2+1)
		_, _ = rand.Read(buf)
		return hex.EncodeToString(buf)[:IDLength]
	}
	return id
}
