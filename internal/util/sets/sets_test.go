package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New("md", "html")
	assert.True(t, s.Has("md"))
	assert.False(t, s.Has("txt"))

	c := s.Clone()
	c.Add("txt")
	c.Delete("md")
	assert.True(t, s.Has("md"), "clone must not alias the original")
	assert.Equal(t, []string{"html", "txt"}, Sorted(c))
	assert.Equal(t, 2, c.Len())

	var empty Set[string]
	assert.False(t, empty.Has("md"))
}
