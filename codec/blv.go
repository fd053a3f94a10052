package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Field tags used inside the BLV-framed plaintext a token decodes to.
// Mirrors the field layout of the reference implementation's wire body,
// reused here per encoded header value instead of per whole request body.
const (
	fieldValue byte = 1
	fieldPad1  byte = 0
	fieldPad2  byte = 39
)

// lengthOffset is added to every encoded length so that short values
// don't produce small, easily fingerprinted length prefixes.
const lengthOffset int32 = 1966546385

// blvEncode packs value plus two random-length junk records into a
// single byte-tag | int32-length | bytes stream.
func blvEncode(value []byte, pad1, pad2 []byte) []byte {
	records := map[byte][]byte{
		fieldValue: value,
		fieldPad1:  pad1,
		fieldPad2:  pad2,
	}

	buf := new(bytes.Buffer)
	for tag, v := range records {
		length := int32(len(v)) + lengthOffset
		buf.WriteByte(tag)
		binary.Write(buf, binary.BigEndian, length)
		buf.Write(v)
	}
	return buf.Bytes()
}

// blvDecode reverses blvEncode and returns the value stored under
// fieldValue. Unknown or padding tags are skipped. A truncated or
// malformed stream is reported as an error rather than panicking.
func blvDecode(data []byte) ([]byte, error) {
	cursor := 0
	var value []byte
	found := false

	for cursor < len(data) {
		if cursor+1 > len(data) {
			break
		}
		tag := data[cursor]
		cursor++

		if cursor+4 > len(data) {
			return nil, fmt.Errorf("codec: truncated length at offset %d", cursor)
		}
		length := int32(binary.BigEndian.Uint32(data[cursor:cursor+4])) - lengthOffset
		cursor += 4

		if length < 0 || cursor+int(length) > len(data) {
			return nil, fmt.Errorf("codec: invalid record length at offset %d", cursor)
		}

		v := data[cursor : cursor+int(length)]
		cursor += int(length)

		if tag == fieldValue {
			value = v
			found = true
		}
	}

	if !found {
		return nil, fmt.Errorf("codec: no value field present")
	}
	return value, nil
}
