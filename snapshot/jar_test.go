package snapshot_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/location"
	"github.com/thepwagner/clrm/snapshot"
)

func testJar() *snapshot.Jar {
	return &snapshot.Jar{
		System:        "base",
		Timestamp:     "20211019.1204",
		Bases:         []string{"arch"},
		Substitutions: map[string]string{"SYSTEM": "base", "FOO": "bar"},
		Hooks: map[string][]*command.ExecRecord{
			"export": {{
				Location: location.New("base.def", 3).WithDescription("export_tar"),
				Command:  "_export_tar",
				Args:     []command.Value{command.String("base"), command.Int(493)},
				Kwargs:   map[string]command.Value{"force": command.Bool(true)},
			}},
		},
	}
}

func TestJar_SaveLoad(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "pickle_jar.bin")
	j := testJar()
	require.NoError(t, j.Save(fn))

	loaded, err := snapshot.Load(fn)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Version, loaded.Version)
	assert.Equal(t, j, loaded)
}

func TestJar_Tampered(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "pickle_jar.bin")
	require.NoError(t, testJar().Save(fn))

	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	b = []byte(string(b[:len(b)-3]) + " }}")
	_, err = snapshot.Decode(b)
	assert.Error(t, err)

	tampered := []byte(`{"checksum":"00","payload":{"version":1}}`)
	_, err = snapshot.Decode(tampered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestLoad_Missing(t *testing.T) {
	_, err := snapshot.Load(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestJar_Clone(t *testing.T) {
	j := testJar()
	cp := j.Clone()
	cp.Substitutions["FOO"] = "changed"
	cp.Hooks["export"][0].Kwargs["force"] = command.Bool(false)
	cp.Bases[0] = "debian"

	assert.Equal(t, "bar", j.Substitutions["FOO"])
	assert.Equal(t, command.Bool(true), j.Hooks["export"][0].Kwargs["force"])
	assert.Equal(t, "arch", j.Bases[0])
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "pickle_jar.bin")
	c, err := snapshot.NewCache(2)
	require.NoError(t, err)

	require.NoError(t, c.Store(fn, testJar()))
	assert.Equal(t, 1, c.Len())

	loaded, err := c.Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "bar", loaded.Substitutions["FOO"])

	// Mutating a loaded jar does not leak into the cache.
	loaded.Substitutions["FOO"] = "mutated"
	again, err := c.Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "bar", again.Substitutions["FOO"])

	// A rewritten jar is decoded again.
	j := testJar()
	j.Substitutions["FOO"] = "rebuilt"
	require.NoError(t, j.Save(fn))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(fn, future, future))
	again, err = c.Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "rebuilt", again.Substitutions["FOO"])

	_, err = c.Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
