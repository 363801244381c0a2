package preflight_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/preflight"
)

func TestCheck(t *testing.T) {
	assert.NoError(t, preflight.Check(logr.Discard()))
	assert.NoError(t, preflight.Check(logr.Discard(), "sh"))

	err := preflight.Check(logr.Discard(), "sh", "clrm-no-such-tool-b", "clrm-no-such-tool-a")
	require.Error(t, err)
	assert.True(t, errdefs.IsPreflight(err))
	assert.Contains(t, err.Error(), "clrm-no-such-tool-a, clrm-no-such-tool-b")
}
