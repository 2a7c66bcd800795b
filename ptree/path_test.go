package ptree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParentChild(t *testing.T) {
	parent, name := Parent("/a/b/c")
	assert.Equal(t, "/a/b", parent)
	assert.Equal(t, "c", name)

	parent, name = Parent("/a")
	assert.Equal(t, "/", parent)
	assert.Equal(t, "a", name)

	assert.Equal(t, "/a/b/c", Child(Child("/a", "b"), "c"))
}

func TestValidateAbsolute(t *testing.T) {
	require.NoError(t, ValidateAbsolute("/a/b"))
	assert.Error(t, ValidateAbsolute("a/b"))
	assert.Error(t, ValidateAbsolute("/a/./b"))
	assert.Error(t, ValidateAbsolute("/a//b"))
}

func TestStripSuffixes(t *testing.T) {
	name, ok := StripNodeLinkSuffix("db ->")
	assert.True(t, ok)
	assert.Equal(t, "db", name)

	_, ok = StripNodeLinkSuffix("db")
	assert.False(t, ok)

	name, ok = StripPropertyLinkSuffix("x =>")
	assert.True(t, ok)
	assert.Equal(t, "x", name)
}
