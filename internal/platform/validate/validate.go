// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// This package is used in the service and policy layers, never in storage.
// It ensures that business logic only operates on semantically valid data.
package validate

import (
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/quire/internal/platform/apperr"
)

// ErrInvalidJSON is returned when the request body cannot be decoded.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// MaxBytes fails if the UTF-8 encoding of value is longer than max bytes.
// Use it for inputs whose consumer counts bytes, such as bcrypt's 72-byte limit.
func (v *Validator) MaxBytes(field, value string, max int) *Validator {
	if len(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d bytes", max))
	}
	return v
}

// Email fails if the value is not a valid RFC 5322 email address.
func (v *Validator) Email(field, value string) *Validator {
	if _, err := mail.ParseAddress(value); err != nil {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// NonNegative fails if a supplied number is negative or not finite.
// A nil value means "not supplied" and always passes.
func (v *Validator) NonNegative(field string, value *float64) *Validator {
	if value == nil {
		return v
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) || *value < 0 {
		v.add(field, "Must be a non-negative number")
	}
	return v
}

// Decimal fails if a supplied number exceeds max or has more than places
// decimal digits, so it fits a NUMERIC column without overflow or rounding.
// A nil value always passes.
func (v *Validator) Decimal(field string, value *float64, max float64, places int) *Validator {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return v
	}
	if *value > max {
		v.add(field, fmt.Sprintf("Maximum %.*f", places, max))
		return v
	}
	// The shortest round-trip form is the decimal the client actually sent.
	digits := strconv.FormatFloat(*value, 'f', -1, 64)
	if dot := strings.IndexByte(digits, '.'); dot >= 0 && len(digits)-dot-1 > places {
		v.add(field, fmt.Sprintf("At most %d decimal places", places))
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("isPublished", wantsPublished && status != "PUBLISHED", "Only PUBLISHED journals can be published")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
