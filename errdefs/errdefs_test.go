package errdefs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

func TestFormat(t *testing.T) {
	loc := location.New("base.def", 4)
	err := errdefs.Parse(&loc, "unknown command %q", "frobnicate")
	assert.Equal(t, `Error in base.def:4: unknown command "frobnicate"`, errdefs.Format(err))

	err = errdefs.Preflight("missing tools: %s", "pacstrap")
	assert.Equal(t, "Error: missing tools: pacstrap", errdefs.Format(err))

	assert.Equal(t, "Error: boom", errdefs.Format(errors.New("boom")))
}

func TestPredicates(t *testing.T) {
	err := fmt.Errorf("building: %w", errdefs.SystemNotFound("arch"))
	assert.True(t, errdefs.IsSystemNotFound(err))
	assert.False(t, errdefs.IsParse(err))
	assert.Equal(t, errdefs.KindSystemNotFound, errdefs.KindOf(err))
	assert.Equal(t, "SystemNotFoundError", errdefs.KindOf(err).String())

	assert.True(t, errdefs.IsContext(errdefs.Context("no workspace")))
	assert.True(t, errdefs.IsSubstitution(errdefs.Substitution(nil, "x")))
	assert.Equal(t, errdefs.KindGenerate, errdefs.KindOf(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	loc := location.New("a.def", 2)
	cause := errors.New("exit status 1")

	err := errdefs.Wrap(&loc, cause, "running pacman")
	assert.True(t, errdefs.IsGenerate(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Error in a.def:2: running pacman: exit status 1", errdefs.Format(err))

	// An existing kind and location win.
	inner := location.New("b.def", 9)
	parse := errdefs.Parse(&inner, "bad")
	err = errdefs.Wrap(&loc, parse, "ignored")
	assert.True(t, errdefs.IsParse(err))
	assert.Equal(t, "Error in b.def:9: bad", errdefs.Format(err))

	// Location is attached when missing.
	err = errdefs.Wrap(&loc, errdefs.Substitution(nil, "substitution %q is not defined", "X"), "ignored")
	assert.True(t, errdefs.IsSubstitution(err))
	assert.Equal(t, `Error in a.def:2: substitution "X" is not defined`, errdefs.Format(err))

	assert.NoError(t, errdefs.Wrap(&loc, nil, "nothing"))
}
