package embedding

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	v := Vector{0.1, -0.25, 1e-9, 3.141592653589793, 0, -1}

	s, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	got, err := Decode(s)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(got) != len(v) {
		t.Fatalf("expected %d values, got %d", len(v), len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: expected %v, got %v", i, v[i], got[i])
		}
	}
}

func TestEncode_Rejects(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := Encode(Vector{1, math.NaN()}); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for NaN, got %v", err)
	}
	if _, err := Encode(Vector{math.Inf(1)}); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for Inf, got %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty string", "", ErrEmpty},
		{"whitespace", "   ", ErrEmpty},
		{"null", "null", ErrEmpty},
		{"empty array", "[]", ErrEmpty},
		{"object", `{"a":1}`, ErrMalformed},
		{"strings", `["a","b"]`, ErrMalformed},
		{"garbage", "not json", ErrMalformed},
		{"truncated", "[0.1, 0.2", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestDecodeDim(t *testing.T) {
	if _, err := DecodeDim("[1,2,3]", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := DecodeDim("[1,2,3]", 128); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
	if _, err := DecodeDim("[1,2,3]", 0); err != nil {
		t.Errorf("dim 0 should accept any length, got %v", err)
	}
}

func TestDistance(t *testing.T) {
	d, err := Distance(Vector{0, 0}, Vector{3, 4})
	if err != nil {
		t.Fatalf("Distance() error: %v", err)
	}
	if d != 5 {
		t.Errorf("expected 5, got %v", d)
	}

	d, err = Distance(Vector{1, 2, 3}, Vector{1, 2, 3})
	if err != nil || d != 0 {
		t.Errorf("identical vectors: got %v, %v", d, err)
	}

	if _, err := Distance(Vector{1}, Vector{1, 2}); !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
	if _, err := Distance(nil, Vector{1}); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestFloat32Conversion(t *testing.T) {
	v := FromFloat32([]float32{0.5, -0.25})
	if v[0] != 0.5 || v[1] != -0.25 {
		t.Errorf("unexpected conversion: %v", v)
	}
	f := v.Float32()
	if f[0] != 0.5 || f[1] != -0.25 {
		t.Errorf("unexpected back conversion: %v", f)
	}
}
