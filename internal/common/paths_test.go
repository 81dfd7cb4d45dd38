package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoRoot_EnvWins(t *testing.T) {
	t.Setenv("JOBWORKFLOW_ROOT", "/srv/jobs")
	assert.Equal(t, "/srv/jobs", RepoRoot())
}

func TestResolveRepoPath(t *testing.T) {
	t.Setenv("JOBWORKFLOW_ROOT", "/srv/jobs")

	assert.Equal(t, filepath.Join("/srv/jobs", "trackers"), ResolveRepoPath("trackers"))
	assert.Equal(t, "/abs/path", ResolveRepoPath("/abs/path"))
	assert.Equal(t, "", ResolveRepoPath(""))
}

func TestResolveDBPath_Priority(t *testing.T) {
	t.Setenv("JOBWORKFLOW_ROOT", "/srv/jobs")
	t.Setenv("JOBWORKFLOW_DB", "")

	// Default under the repo root.
	assert.Equal(t, filepath.Join("/srv/jobs", "data", "capture", "jobs.db"), ResolveDBPath(""))

	// Env override.
	t.Setenv("JOBWORKFLOW_DB", "/var/db/jobs.db")
	assert.Equal(t, "/var/db/jobs.db", ResolveDBPath(""))

	// Explicit argument beats the env.
	assert.Equal(t, "/explicit/jobs.db", ResolveDBPath("/explicit/jobs.db"))

	// Relative explicit argument anchors to the root.
	assert.Equal(t, filepath.Join("/srv/jobs", "custom", "jobs.db"), ResolveDBPath("custom/jobs.db"))
}
