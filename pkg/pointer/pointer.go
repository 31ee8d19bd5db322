// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer holds generic helpers for the optional fields of domain
records (review notes, price, dates) and patch inputs.

Key Functions:
  - To: Pointer to a copy of a value.
  - Val: Dereference, zero value when nil.
  - Fallback: Dereference, fallback when nil.
*/
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// Val dereferences p, returning the zero value of T when p is nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Fallback dereferences p, returning fallback when p is nil.
func Fallback[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
