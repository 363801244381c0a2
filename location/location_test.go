package location_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thepwagner/clrm/location"
)

func TestLocation_IsValid(t *testing.T) {
	assert.False(t, location.Location{}.IsValid())
	assert.True(t, location.New("foo.def", 3).IsValid())
	assert.True(t, location.BuiltIn().IsValid())
}

func TestLocation_NextLine(t *testing.T) {
	l := location.New("foo.def", 3).WithDescription("pacman")
	next := l.NextLine()
	assert.Equal(t, 4, next.LineNumber)
	assert.Equal(t, "foo.def", next.FileName)
	assert.Equal(t, 3, l.LineNumber)
}

func TestLocation_CreateChild(t *testing.T) {
	l := location.New("foo.def", 7)
	child := l.CreateChild("", `<COMMAND "create">`)
	assert.Equal(t, "foo.def", child.FileName)
	assert.Equal(t, 7, child.LineNumber)
	assert.Equal(t, 1, child.LineOffset)
	assert.Equal(t, `foo.def:7+1 "<COMMAND \"create\">"`, child.String())

	other := child.CreateChild("bar.def", "nested")
	assert.Equal(t, "bar.def", other.FileName)
	assert.Equal(t, 2, other.LineOffset)
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "<BUILT_IN>:1", location.BuiltIn().String())
	assert.Equal(t, "<BUILT_IN>:1", location.BuiltIn().Short())
	assert.Equal(t, "<UNKNOWN>", location.Location{}.String())
	assert.Equal(t, `a.def:2 "based_on"`, location.New("a.def", 2).WithDescription("based_on").String())
}
