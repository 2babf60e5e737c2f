package types

// IsInteger reports whether t is one of the integer base types
// (signed, unsigned, platform-width, bool, or char — spec.md §4.6
// "Bool counts as a 1-bit integer. Char is a distinct 8-bit integer.").
func IsInteger(t *Type) bool {
	if t == nil || t.kind != KindBasic {
		return false
	}
	switch t.base {
	case Bool, Char, Int8, Int16, Int32, Int64, Int128,
		UInt8, UInt16, UInt32, UInt64, UInt128,
		Int, UInt, Size, IntPtr, PtrDiff:
		return true
	default:
		return false
	}
}

// IsSigned reports whether an integer type is signed. Bool and
// unsigned types are not signed; char is signed on the reference
// platform.
func IsSigned(t *Type) bool {
	if !IsInteger(t) {
		return false
	}
	switch t.base {
	case Int8, Int16, Int32, Int64, Int128, Int, IntPtr, PtrDiff, Char:
		return true
	default:
		return false
	}
}

// IsFloating reports whether t is float/double/long-double.
func IsFloating(t *Type) bool {
	if t == nil || t.kind != KindBasic {
		return false
	}
	switch t.base {
	case Float, Double, LongDouble:
		return true
	default:
		return false
	}
}

// IntegerSize returns the width in bits of an integer type, given the
// platform's native widths (NativeTypes carries int/uint/size/intptr/
// ptrdiff widths, since those vary with the target — spec.md §3
// "NativeTypes descriptor (platform widths)").
func IntegerSize(t *Type, native NativeTypes) int {
	if !IsInteger(t) {
		return 0
	}
	switch t.base {
	case Bool:
		return 1
	case Char, Int8, UInt8:
		return 8
	case Int16, UInt16:
		return 16
	case Int32, UInt32:
		return 32
	case Int64, UInt64:
		return 64
	case Int128, UInt128:
		return 128
	case Int, UInt:
		return native.IntWidth
	case Size:
		return native.SizeWidth
	case IntPtr, PtrDiff:
		return native.PtrWidth
	default:
		return 0
	}
}

// FPRelativeSize returns a relative ranking of floating-point
// precision (float < double < long double) used to decide widening
// direction for implicit float promotion.
func FPRelativeSize(t *Type) int {
	if !IsFloating(t) {
		return 0
	}
	switch t.base {
	case Float:
		return 1
	case Double:
		return 2
	case LongDouble:
		return 3
	default:
		return 0
	}
}

// NativeTypes describes the platform-dependent widths of int/uint/
// size/intptr/ptrdiff, supplied by the Context (spec.md §3).
type NativeTypes struct {
	IntWidth  int
	UIntWidth int
	SizeWidth int
	PtrWidth  int
}

// DefaultNativeTypes returns the widths of a typical 64-bit target,
// used when the driver isn't told otherwise.
func DefaultNativeTypes() NativeTypes {
	return NativeTypes{IntWidth: 32, UIntWidth: 32, SizeWidth: 64, PtrWidth: 64}
}
