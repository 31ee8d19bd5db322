// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query reads list filters from URL query parameters and prepares
// them for SQL.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// List collects every value of key, accepting both repeated parameters
// (status=A&status=B) and comma lists (status=A,B). Blank entries are dropped.
func List(values url.Values, key string) []string {
	var result []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				result = append(result, clean)
			}
		}
	}
	return result
}

// Bool parses key as a boolean. Missing or malformed values are false.
func Bool(values url.Values, key string) bool {
	parsed, err := strconv.ParseBool(values.Get(key))
	return err == nil && parsed
}

// likeEscaper neutralises LIKE wildcards; pair it with ESCAPE '\' in SQL.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike makes a search term match literally inside a LIKE/ILIKE pattern.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}
