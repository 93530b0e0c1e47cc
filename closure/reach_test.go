package closure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pairs(g *Graph) [][2]string {
	var out [][2]string
	g.Closure(func(s, o string) bool {
		out = append(out, [2]string{s, o})
		return true
	})
	return out
}

func TestClosureChain(t *testing.T) {
	g := NewGraph()
	assert.True(t, g.Add("a", "b"))
	assert.True(t, g.Add("b", "c"))
	assert.False(t, g.Add("a", "b"))
	assert.Equal(t, 2, g.Len())

	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}, pairs(g))
}

func TestClosureDiamond(t *testing.T) {
	g := NewGraph()
	g.Add("a", "b")
	g.Add("a", "c")
	g.Add("b", "d")
	g.Add("c", "d")

	assert.Equal(t, [][2]string{
		{"a", "b"}, {"a", "c"}, {"a", "d"},
		{"b", "d"},
		{"c", "d"},
	}, pairs(g))
}

func TestClosureCycleReachesSelf(t *testing.T) {
	g := NewGraph()
	g.Add("a", "b")
	g.Add("b", "a")

	assert.ElementsMatch(t, [][2]string{{"a", "b"}, {"a", "a"}, {"b", "a"}, {"b", "b"}}, pairs(g))
}

func TestClosureStops(t *testing.T) {
	g := NewGraph()
	g.Add("a", "b")
	g.Add("b", "c")

	n := 0
	g.Closure(func(_, _ string) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}
