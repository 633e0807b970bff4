package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestEveryUpHasDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "files")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if base, ok := strings.CutSuffix(name, ".up.sql"); ok {
			assert.True(t, names[base+".down.sql"], "missing down migration for %s", name)
		}
	}
}

func TestInitSchemaEnforcesReactionUniqueness(t *testing.T) {
	b, err := fs.ReadFile(migrationFiles, "files/000001_init_messaging.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "UNIQUE (message_id, user_id, reaction_type)")
}

func TestStatusPending(t *testing.T) {
	assert.Equal(t, uint(2), Status{Current: 0, Latest: 2}.Pending())
	assert.Equal(t, uint(0), Status{Current: 2, Latest: 2}.Pending())
	assert.Equal(t, uint(0), Status{Current: 3, Latest: 2}.Pending())
}

func TestUpRejectsUnknownScheme(t *testing.T) {
	err := Up("nosuchdriver://localhost/db")
	assert.Error(t, err)
}
