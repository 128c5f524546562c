// Package bits provides typed views over raw register values.
//
// A Field names a contiguous run of bits inside a register of width T. Views
// translate between named fields and raw integers; they never touch hardware.
package bits

import "golang.org/x/exp/constraints"

// Field is a contiguous bit-field of Width bits starting at bit Shift.
type Field[T constraints.Unsigned] struct {
	Shift uint8
	Width uint8
}

// Bit returns the single-bit Field at position n.
func Bit[T constraints.Unsigned](n uint8) Field[T] { return Field[T]{Shift: n, Width: 1} }

// Span returns the Field of width bits starting at shift.
func Span[T constraints.Unsigned](shift, width uint8) Field[T] {
	return Field[T]{Shift: shift, Width: width}
}

// Mask returns the in-place mask of the field.
func (f Field[T]) Mask() T {
	return ((T(1) << f.Width) - 1) << f.Shift
}

// Get extracts the field value from reg.
func (f Field[T]) Get(reg T) T {
	return (reg & f.Mask()) >> f.Shift
}

// IsSet reports whether any bit of the field is set in reg.
func (f Field[T]) IsSet(reg T) bool {
	return reg&f.Mask() != 0
}

// With returns reg with the field replaced by v. Bits of v that do not fit
// in the field are discarded.
func (f Field[T]) With(reg, v T) T {
	return (reg &^ f.Mask()) | ((v << f.Shift) & f.Mask())
}

// Val returns v positioned in the field, for OR-ing into a fresh value.
func (f Field[T]) Val(v T) T {
	return (v << f.Shift) & f.Mask()
}

// Set returns reg with every bit of the field set.
func (f Field[T]) Set(reg T) T { return reg | f.Mask() }

// Clear returns reg with every bit of the field cleared.
func (f Field[T]) Clear(reg T) T { return reg &^ f.Mask() }

// Assign sets or clears the field in reg according to on.
func (f Field[T]) Assign(reg T, on bool) T {
	if on {
		return f.Set(reg)
	}
	return f.Clear(reg)
}
