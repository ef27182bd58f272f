package embedding

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// ToBlob serializes a vector to its storage representation: raw
// little-endian float32 bytes (sqlite-vec's wire format). This is the exact
// inverse of FromBlob, so embedding → blob → embedding round-trips
// bit-for-bit — JSON or text encodings cannot make that guarantee for all
// float values, which is why this does not reuse the JSON codec elsewhere in
// this domain.
func ToBlob(v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return sqlite_vec.SerializeFloat32(v)
}

// FromBlob is the inverse of ToBlob.
func FromBlob(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return sqlite_vec.DeserializeFloat32(b)
}
