package bundled

import (
	"testing"

	"github.com/greenhands/greenhands-shell/config"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	"github.com/stretchr/testify/assert"
)

func TestFromBackend(t *testing.T) {
	c := FromBackend(config.BackendConfig{URL: "https://x.test", AnonKey: "k1"})

	url, ok := c.Lookup(connection.StorageKeyURL)
	assert.True(t, ok)
	assert.Equal(t, "https://x.test", url)

	key, ok := c.Lookup(connection.StorageKeyAnonKey)
	assert.True(t, ok)
	assert.Equal(t, "k1", key)
}

func TestFromBackend_EmptyValuesAreAbsent(t *testing.T) {
	c := FromBackend(config.BackendConfig{URL: "https://x.test"})

	_, ok := c.Lookup(connection.StorageKeyAnonKey)
	assert.False(t, ok)
}

func TestNilConfig(t *testing.T) {
	var c *Config
	_, ok := c.Lookup(connection.StorageKeyURL)
	assert.False(t, ok)
}

func TestFromMap_CopiesInput(t *testing.T) {
	in := map[string]string{"a": "1"}
	c := FromMap(in)
	in["a"] = "2"

	v, _ := c.Lookup("a")
	assert.Equal(t, "1", v)
}
