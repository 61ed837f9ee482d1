package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]string{
		{"React", "Node.js"},
		{"Go"},
		{"PostgreSQL", "Redis", "Go", "Redis"},
		{},
	}
	for _, values := range cases {
		assert.Equal(t, values, ToList(ToEditable(values)))
	}
}

func TestToEditable(t *testing.T) {
	assert.Equal(t, "React, Node.js", ToEditable([]string{"React", "Node.js"}))
	assert.Equal(t, "", ToEditable(nil))
}

func TestToListDropsEmptyTokens(t *testing.T) {
	assert.Equal(t, []string{"React", "Node.js"}, ToList("React, , Node.js, "))
	assert.Equal(t, []string{"a", "b"}, ToList(" a ,b,,"))
}

func TestToListKeepsOrderAndDuplicates(t *testing.T) {
	assert.Equal(t, []string{"Go", "Rust", "Go"}, ToList("Go,Rust, Go"))
}

func TestToListBlankInputIsEmptyNotNil(t *testing.T) {
	out := ToList("  ")
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
