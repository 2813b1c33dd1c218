package rpc

import "testing"

func TestParseHexUint64(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x172721e", 24277534, false},
		{"0x0", 0, false},
		{"", 0, false},
		{"ff", 255, false},
		{"0xzz", 0, true},
		{"0x10000000000000000", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHexUint64(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexUint64(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHexUint64(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseHexBigInt(t *testing.T) {
	got, err := ParseHexBigInt("0x10000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "18446744073709551616" {
		t.Errorf("ParseHexBigInt() = %s", got)
	}
	if _, err := ParseHexBigInt("0xnope"); err == nil {
		t.Error("expected error for invalid hex")
	}
}
