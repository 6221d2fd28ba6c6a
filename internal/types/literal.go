package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SymValKind discriminates the payload carried by a SymVal.
type SymValKind int

const (
	ValVoid SymValKind = iota
	ValInt
	ValFloat
	ValFunc
)

// SymVal is the compile-time value of a symbol: either no value, an integer
// or float literal kept as its exact source lexeme, or a function signature.
// Numeric lexemes are kept as strings (decimal for ints, 16-hex-digit
// IEEE-754 double form for floats) so that re-emission never loses precision
// through an intermediate machine float, mirroring the teacher's choice to
// keep SymVal::Int/Float as owned source strings.
type SymVal struct {
	Kind       SymValKind
	Lexeme     string // decimal int, or "0x"+16 hex digits for float.
	ReturnType Width
	ParamTypes []Width
}

// IntVal constructs a SymVal holding the decimal lexeme of i, truncated to
// i32 two's complement as the language mandates.
func IntVal(i int32) SymVal {
	return SymVal{Kind: ValInt, Lexeme: strconv.FormatInt(int64(i), 10)}
}

// FloatVal constructs a SymVal from a float64, re-encoding through the
// IEEE-754 single-precision representation (the language's only float
// width) before storing its wire form as a double-hex lexeme.
func FloatVal(f float64) SymVal {
	f32 := float32(f)
	return SymVal{Kind: ValFloat, Lexeme: DoubleHex(float64(f32))}
}

// DoubleHex renders f in the "0x" + 16 hex digit IEEE-754 double form used
// for every float lexeme in the IR, grounded on original_source/src/float.rs
// format_double.
func DoubleHex(f float64) string {
	return fmt.Sprintf("0x%016x", math.Float64bits(f))
}

// AsInt32 returns the int32 value of an integer SymVal.
func (v SymVal) AsInt32() int32 {
	n, _ := strconv.ParseInt(v.Lexeme, 10, 64)
	return int32(n)
}

// AsFloat64 decodes the double-hex lexeme of a float SymVal back to float64.
func (v SymVal) AsFloat64() float64 {
	s := strings.TrimPrefix(v.Lexeme, "0x")
	bits, _ := strconv.ParseUint(s, 16, 64)
	return math.Float64frombits(bits)
}

// ParseIntLiteral parses a decimal, octal (leading 0) or hexadecimal (0x)
// integer literal into an i32 SymVal wrapping around on overflow, matching
// C integer-literal semantics.
func ParseIntLiteral(lexeme string) (SymVal, error) {
	base := 10
	s := lexeme
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base = 16
		s = s[2:]
	case len(s) > 1 && s[0] == '0':
		base = 8
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return SymVal{}, errors.Wrapf(err, "malformed integer literal %q", lexeme)
	}
	return IntVal(int32(uint32(n))), nil
}

// ParseFloatLiteral accepts decimal float literals, the C99
// hexadecimal-with-binary-exponent form (0x1af.p2, 0xaf.fep-4) and the raw
// IEEE-754 wire hex form itself (0x + 8 or 16 hex digits), normalizing all
// three to the 16-hex-digit double lexeme. Grounded on
// original_source/src/float.rs parse_float/parse_IEEE.
func ParseFloatLiteral(lexeme string) (SymVal, error) {
	lower := strings.ToLower(lexeme)
	if !strings.HasPrefix(lower, "0x") {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return SymVal{}, errors.Wrapf(err, "malformed float literal %q", lexeme)
		}
		return FloatVal(f), nil
	}

	if !strings.ContainsAny(lower, "p") {
		// Raw IEEE-754 wire hex: either 8 (float32) or 16 (float64) digits.
		hexDigits := lower[2:]
		switch len(hexDigits) {
		case 8:
			bits, err := strconv.ParseUint(hexDigits, 16, 32)
			if err != nil {
				return SymVal{}, errors.Wrapf(err, "malformed IEEE-754 hex literal %q", lexeme)
			}
			return FloatVal(float64(math.Float32frombits(uint32(bits)))), nil
		case 16:
			bits, err := strconv.ParseUint(hexDigits, 16, 64)
			if err != nil {
				return SymVal{}, errors.Wrapf(err, "malformed IEEE-754 hex literal %q", lexeme)
			}
			return FloatVal(math.Float64frombits(bits)), nil
		default:
			return SymVal{}, errors.Errorf("IEEE-754 hex literal %q has unexpected length", lexeme)
		}
	}

	// 0x<mantissa>p<exponent>, mantissa optionally containing a '.'.
	pIdx := strings.IndexByte(lower, 'p')
	mantissa := lower[2:pIdx]
	expPart := lower[pIdx+1:]
	exp, err := strconv.ParseFloat(expPart, 64)
	if err != nil {
		return SymVal{}, errors.Wrapf(err, "malformed binary exponent in %q", lexeme)
	}

	var integer, fraction float64
	if dot := strings.IndexByte(mantissa, '.'); dot >= 0 {
		intPart, fracPart := mantissa[:dot], mantissa[dot+1:]
		if intPart != "" {
			n, err := strconv.ParseUint(intPart, 16, 64)
			if err != nil {
				return SymVal{}, errors.Wrapf(err, "malformed hex mantissa in %q", lexeme)
			}
			integer = float64(n)
		}
		if fracPart != "" {
			n, err := strconv.ParseUint(fracPart, 16, 64)
			if err != nil {
				return SymVal{}, errors.Wrapf(err, "malformed hex mantissa in %q", lexeme)
			}
			fraction = float64(n) / math.Pow(16, float64(len(fracPart)))
		}
	} else {
		n, err := strconv.ParseUint(mantissa, 16, 64)
		if err != nil {
			return SymVal{}, errors.Wrapf(err, "malformed hex mantissa in %q", lexeme)
		}
		integer = float64(n)
	}

	val := (integer + fraction) * math.Pow(2, exp)
	return FloatVal(val), nil
}
