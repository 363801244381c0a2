package log_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/thepwagner/clrm/log"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, log.Level(0))
	assert.Equal(t, zerolog.DebugLevel, log.Level(1))
	assert.Equal(t, zerolog.TraceLevel, log.Level(2))
	assert.Equal(t, zerolog.TraceLevel, log.Level(5))
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, 0)
	l.Info("building", "system", "base")
	assert.Contains(t, buf.String(), "building")
	assert.Contains(t, buf.String(), "system=base")
}
