package primitives

import "encoding/base64"

// B64Encode encodes with standard base64 and '=' padding, the "ORIGINAL"
// variant spec.md §6 requires for every key/byte field on the wire.
func B64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// B64Decode decodes standard, padded base64.
func B64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
