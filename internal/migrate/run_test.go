package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "0001_profiles", versions[0])
	assert.IsNonDecreasing(t, versions)
}

func TestMigrationsDefineProfiles(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_profiles.sql")
	require.NoError(t, err)
	for _, col := range []string{"role", "approved", "status", "pin_hash", "pin_attempts", "pin_locked_until"} {
		assert.Contains(t, string(body), col)
	}
}
