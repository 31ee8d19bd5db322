// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug turns journal titles into ASCII URL slugs
// ("Über Analytical Engines" becomes "uber-analytical-engines").
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps a slug. Longer results are cut at the last hyphen before the cap.
const MaxLength = 96

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	stripMarks      = transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
)

// From converts s into a lowercase, hyphen-separated ASCII slug.
//
// # Transformation Pipeline
//
//  1. Decompose (NFD) and drop combining marks, so "é" becomes "e".
//  2. Lowercase.
//  3. Collapse every run of other characters into one hyphen.
//  4. Trim hyphens and cap the length.
func From(s string) string {
	result, _, err := transform.String(stripMarks, s)
	if err != nil {
		result = s
	}

	result = nonAlphanumeric.ReplaceAllString(strings.ToLower(result), "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLength {
		result = result[:MaxLength]
		if cut := strings.LastIndexByte(result, '-'); cut > 0 {
			result = result[:cut]
		}
		result = strings.Trim(result, "-")
	}

	return result
}

// isMn reports whether r is a Unicode non-spacing mark.
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
