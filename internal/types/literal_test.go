package types

import (
	"math"
	"testing"
)

func TestParseIntLiteralBases(t *testing.T) {
	cases := map[string]int32{
		"42":         42,
		"0":          0,
		"0x10":       16,
		"0X10":       16,
		"010":        8,
		"4294967295": -1, // wraps to i32 two's complement
	}
	for lexeme, want := range cases {
		v, err := ParseIntLiteral(lexeme)
		if err != nil {
			t.Errorf("ParseIntLiteral(%q): %v", lexeme, err)
			continue
		}
		if got := v.AsInt32(); got != want {
			t.Errorf("ParseIntLiteral(%q) = %d, want %d", lexeme, got, want)
		}
	}
}

func TestParseIntLiteralMalformed(t *testing.T) {
	if _, err := ParseIntLiteral("12ab"); err == nil {
		t.Errorf("malformed integer literal accepted")
	}
}

func TestParseFloatLiteralDecimal(t *testing.T) {
	v, err := ParseFloatLiteral("3.5")
	if err != nil {
		t.Fatalf("ParseFloatLiteral: %v", err)
	}
	if got := v.AsFloat64(); got != 3.5 {
		t.Errorf("3.5 decoded to %v", got)
	}
	if len(v.Lexeme) != 18 || v.Lexeme[:2] != "0x" {
		t.Errorf("lexeme %q is not the 16-hex-digit double form", v.Lexeme)
	}
}

func TestParseFloatLiteralHexBinaryExponent(t *testing.T) {
	// 0x1af.p2 = 431 * 4 = 1724
	v, err := ParseFloatLiteral("0x1af.p2")
	if err != nil {
		t.Fatalf("ParseFloatLiteral: %v", err)
	}
	if got := v.AsFloat64(); got != 1724 {
		t.Errorf("0x1af.p2 decoded to %v, want 1724", got)
	}

	// 0xaf.fep-4 = (175 + 254/256) / 16, rounded through float32.
	v, err = ParseFloatLiteral("0xaf.fep-4")
	if err != nil {
		t.Fatalf("ParseFloatLiteral: %v", err)
	}
	want := float64(float32((175 + 254.0/256.0) / 16))
	if got := v.AsFloat64(); got != want {
		t.Errorf("0xaf.fep-4 decoded to %v, want %v", got, want)
	}
}

func TestParseFloatLiteralRawWireForms(t *testing.T) {
	// 8 hex digits: a float32 bit pattern.
	v, err := ParseFloatLiteral("0x3f800000")
	if err != nil {
		t.Fatalf("ParseFloatLiteral: %v", err)
	}
	if got := v.AsFloat64(); got != 1.0 {
		t.Errorf("0x3f800000 decoded to %v, want 1.0", got)
	}

	// 16 hex digits: a float64 bit pattern round-trips unchanged.
	lexeme := DoubleHex(2.5)
	v, err = ParseFloatLiteral(lexeme)
	if err != nil {
		t.Fatalf("ParseFloatLiteral: %v", err)
	}
	if v.Lexeme != lexeme {
		t.Errorf("wire form %q re-encoded as %q", lexeme, v.Lexeme)
	}
}

func TestParseFloatLiteralMalformed(t *testing.T) {
	for _, lexeme := range []string{"1.2.3", "0x12345", "0xzz.p2"} {
		if _, err := ParseFloatLiteral(lexeme); err == nil {
			t.Errorf("malformed float literal %q accepted", lexeme)
		}
	}
}

func TestFloatValRoundsThroughSinglePrecision(t *testing.T) {
	v := FloatVal(0.1)
	want := float64(float32(0.1))
	if got := v.AsFloat64(); got != want {
		t.Errorf("FloatVal(0.1) = %v, want the float32-rounded %v", got, want)
	}
}

func TestDoubleHexEncodesBits(t *testing.T) {
	if got := DoubleHex(0); got != "0x0000000000000000" {
		t.Errorf("DoubleHex(0) = %q", got)
	}
	if got := DoubleHex(math.Inf(1)); got != "0x7ff0000000000000" {
		t.Errorf("DoubleHex(+Inf) = %q", got)
	}
}
