package genset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceMap(t *testing.T) {
	type testStruct struct {
		F1 string
	}

	unused := func(s testStruct) string {
		return ""
	}
	getF1 := func(s testStruct) string {
		return s.F1
	}

	testCases := []struct {
		name     string
		slice    []testStruct
		f        func(testStruct) string
		expected []string
	}{
		{
			name:     "empty map",
			slice:    nil,
			f:        unused,
			expected: nil,
		},
		{
			name:     "field projection",
			slice:    []testStruct{{F1: "1"}, {F1: "2"}},
			f:        getF1,
			expected: []string{"1", "2"},
		},
	}

	for _, tc := range testCases {
		actual := SliceMap(tc.slice, tc.f)
		assert.Equal(t, tc.expected, actual, tc.name)
	}
}
