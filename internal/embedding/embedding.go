// Package embedding encodes, decodes and compares face descriptors.
//
// A descriptor travels as a JSON array of floats serialized into a string,
// which is then itself placed in a JSON field of the outer payload.
package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmpty is returned for an empty string or an empty array.
	ErrEmpty = errors.New("embedding is empty")
	// ErrMalformed is returned when the string is not a JSON array of numbers.
	ErrMalformed = errors.New("embedding is malformed")
	// ErrDimension is returned when a vector has an unexpected length.
	ErrDimension = errors.New("embedding has wrong dimension")
)

// Vector is a fixed-length face descriptor. Individual dimensions carry no meaning.
type Vector []float64

// Encode serializes v as a JSON array string.
func Encode(v Vector) (string, error) {
	if len(v) == 0 {
		return "", ErrEmpty
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("%w: non-finite value at index %d", ErrMalformed, i)
		}
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(b), nil
}

// MustEncode is Encode for vectors known to be valid.
func MustEncode(v Vector) string {
	s, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses an encoded descriptor of any length.
func Decode(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, ErrEmpty
	}
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(v) == 0 {
		return nil, ErrEmpty
	}
	return Vector(v), nil
}

// DecodeDim parses an encoded descriptor and requires exactly dim values.
func DecodeDim(s string, dim int) (Vector, error) {
	v, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if dim > 0 && len(v) != dim {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimension, len(v), dim)
	}
	return v, nil
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmpty
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimension, len(a), len(b))
	}
	return floats.Distance(a, b, 2), nil
}

// FromFloat32 converts detector output to a Vector.
func FromFloat32(f []float32) Vector {
	v := make(Vector, len(f))
	for i, x := range f {
		v[i] = float64(x)
	}
	return v
}

// Float32 converts v to float32, as stored in a pgvector column.
func (v Vector) Float32() []float32 {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return f
}
