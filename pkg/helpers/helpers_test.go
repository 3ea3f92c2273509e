package helpers

import (
	"testing"
)

func TestCompareBytes(t *testing.T) {
	tests := []struct {
		name string
		a    []byte
		b    []byte
		want int
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, 0},
		{"a less", []byte{1, 2, 3}, []byte{1, 2, 4}, -1},
		{"a greater", []byte{1, 2, 4}, []byte{1, 2, 3}, 1},
		{"a shorter", []byte{1, 2}, []byte{1, 2, 3}, -1},
		{"a longer", []byte{1, 2, 3}, []byte{1, 2}, 1},
		{"empty equal", []byte{}, []byte{}, 0},
		{"a empty", []byte{}, []byte{1}, -1},
		{"b empty", []byte{1}, []byte{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareBytes(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CompareBytes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBytesEqual(t *testing.T) {
	tests := []struct {
		name string
		a    []byte
		b    []byte
		want bool
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, true},
		{"not equal", []byte{1, 2, 3}, []byte{1, 2, 4}, false},
		{"different length", []byte{1, 2}, []byte{1, 2, 3}, false},
		{"empty equal", []byte{}, []byte{}, true},
		{"nil equal", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesEqual(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("BytesEqual = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsZeroBytes(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want bool
	}{
		{"all zeros", []byte{0, 0, 0}, true},
		{"has non-zero", []byte{0, 1, 0}, false},
		{"empty", []byte{}, true},
		{"single zero", []byte{0}, true},
		{"single non-zero", []byte{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsZeroBytes(tt.b)
			if got != tt.want {
				t.Errorf("IsZeroBytes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHexRoundtrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xde, 0xad, 0xbe, 0xef},
		{0x01, 0x02, 0x03, 0x04, 0x05},
	}

	for _, b := range inputs {
		h := BytesToHex(b)
		got, err := HexToBytes(h)
		if err != nil {
			t.Fatalf("HexToBytes(%s) error = %v", h, err)
		}
		if !BytesEqual(got, b) {
			t.Errorf("roundtrip mismatch: %v -> %s -> %v", b, h, got)
		}
	}
}

func TestHexToBytesAcceptsNoPrefix(t *testing.T) {
	got, err := HexToBytes("deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if !BytesEqual(got, want) {
		t.Errorf("HexToBytes(deadbeef) = %v, want %v", got, want)
	}
}

func TestGenerateSecureRandom(t *testing.T) {
	a, err := GenerateSecureRandom(32)
	if err != nil {
		t.Fatalf("GenerateSecureRandom error = %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len(a) = %d, want 32", len(a))
	}

	b, err := GenerateSecureRandom(32)
	if err != nil {
		t.Fatalf("GenerateSecureRandom error = %v", err)
	}
	if BytesEqual(a, b) {
		t.Error("two independent random draws should not be equal")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	a := []byte("signature-bytes")
	b := []byte("signature-bytes")
	c := []byte("different-bytes")

	if !ConstantTimeCompare(a, b) {
		t.Error("ConstantTimeCompare(a, b) = false, want true")
	}
	if ConstantTimeCompare(a, c) {
		t.Error("ConstantTimeCompare(a, c) = true, want false")
	}
}
