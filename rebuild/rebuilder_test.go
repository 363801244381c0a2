package rebuild_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/rebuild"
)

func TestRebuilder_Rebuild(t *testing.T) {
	var discarded, built []string
	r := rebuild.NewRebuilder(logr.Discard(),
		func(_ context.Context, system string) error {
			discarded = append(discarded, system)
			return nil
		},
		func(_ context.Context, systems []string) error {
			built = append(built, systems...)
			return nil
		})

	require.NoError(t, r.Rebuild(context.Background(), "web", "db"))
	assert.Equal(t, []string{"web", "db"}, discarded)
	assert.Equal(t, []string{"web", "db"}, built)
}

func TestRebuilder_DiscardFailure(t *testing.T) {
	built := false
	r := rebuild.NewRebuilder(logr.Discard(),
		func(context.Context, string) error { return errors.New("busy") },
		func(context.Context, []string) error {
			built = true
			return nil
		})

	err := r.Rebuild(context.Background(), "web")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discarding web")
	assert.False(t, built)
}

func TestRebuilder_Cron(t *testing.T) {
	r := rebuild.NewRebuilder(logr.Discard(),
		func(context.Context, string) error { return nil },
		func(context.Context, []string) error { return nil })

	_, err := r.Cron("not a schedule", "web")
	assert.Error(t, err)

	id, err := r.Cron("@daily", "web")
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.False(t, entries[0].Next.IsZero())
}
