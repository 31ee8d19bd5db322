// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slice_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/quire/pkg/slice"
)

func TestMapFilter(t *testing.T) {
	upper := slice.Map([]string{"draft", "published"}, strings.ToUpper)
	assert.Equal(t, []string{"DRAFT", "PUBLISHED"}, upper)

	short := slice.Filter(upper, func(s string) bool { return len(s) < 6 })
	assert.Equal(t, []string{"DRAFT"}, short)

	assert.Nil(t, slice.Map[string, string](nil, strings.ToUpper))
	assert.Nil(t, slice.Filter[string](nil, func(string) bool { return true }))
}
