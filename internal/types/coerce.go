package types

// CanCoerce reports whether a value of type from can be implicitly
// coerced to type to under the integer/bool promotion rules used by
// overload resolution (spec.md §4.2 step 2) and implicit casts
// (spec.md §4.6). Implicit coercion never crosses the pointer/integer
// boundary (spec.md §4.6 "Cast" — "implicit casts...forbid
// pointer<->integer"); explicit casts are handled separately in
// internal/lower.
func CanCoerce(from, to *Type, native NativeTypes) bool {
	if Equal(from, to, true) {
		return true
	}
	if IsInteger(from) && IsInteger(to) {
		// Widening is implicit; narrowing is not (spec.md §4.6).
		return IntegerSize(from, native) <= IntegerSize(to, native) && sameSignedness(from, to)
	}
	if IsFloating(from) && IsFloating(to) {
		return FPRelativeSize(from) <= FPRelativeSize(to)
	}
	if IsInteger(from) && IsFloating(to) {
		return true
	}
	if isCharPointer(from) && isCharArray(to) || isCharArray(from) && isCharPointer(to) {
		// Array-decay rule: p char <-> array N char interconvert in
		// value position only (spec.md §4.6).
		return true
	}
	return false
}

func sameSignedness(a, b *Type) bool {
	// bool and char coerce freely into wider signed or unsigned types;
	// strict sign-matching is only enforced between the fixed-width
	// signed/unsigned families.
	if a.base == Bool || a.base == Char {
		return true
	}
	return IsSigned(a) == IsSigned(b)
}

func isCharPointer(t *Type) bool {
	return t != nil && t.kind == KindPointer && t.pointsTo != nil &&
		t.pointsTo.kind == KindBasic && t.pointsTo.base == Char
}

func isCharArray(t *Type) bool {
	return t != nil && t.kind == KindArray && t.elem != nil &&
		t.elem.kind == KindBasic && t.elem.base == Char
}

// PromoteForVariadic applies C-style promotion to a trailing
// variadic-call argument type (spec.md §4.6 "Call"): float widens to
// double; integer types narrower than the platform int widen (signed
// sign-extends, unsigned zero-extends — representationally this just
// means "promote to at least int width").
func PromoteForVariadic(r *Registry, t *Type, native NativeTypes) *Type {
	if t.kind == KindBasic && t.base == Float {
		return r.Basic(Double)
	}
	if IsInteger(t) && IntegerSize(t, native) < native.IntWidth {
		if IsSigned(t) {
			return r.Basic(Int)
		}
		return r.Basic(UInt)
	}
	return t
}
