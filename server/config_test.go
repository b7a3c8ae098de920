// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package server_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hshadab/robotics-simulation/server"
)

func TestNewConfig(t *testing.T) {
	c := server.NewConfig()
	assert.Equal(t, ":8000", c.Bind)
	assert.False(t, c.Verbose)
	assert.Equal(t, "", c.Hub.Endpoint)
	assert.Equal(t, 3, c.Hub.RetryMax)
	assert.Equal(t, []string{"*"}, c.Handler.AllowedOrigins)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robosim.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
bind = "127.0.0.1:9100"
verbose = true

[hub]
endpoint = "http://localhost:9999"

[handler]
allowed-origins = ["https://example.com"]
`), 0o644))

	c := server.NewConfig()
	require.NoError(t, c.LoadConfig(path))

	assert.Equal(t, "127.0.0.1:9100", c.Bind)
	assert.True(t, c.Verbose)
	assert.Equal(t, "http://localhost:9999", c.Hub.Endpoint)
	// Values absent from the file keep their defaults.
	assert.Equal(t, 3, c.Hub.RetryMax)
	assert.Equal(t, []string{"https://example.com"}, c.Handler.AllowedOrigins)
}

func TestLoadConfigMissingFile(t *testing.T) {
	c := server.NewConfig()
	assert.Error(t, c.LoadConfig(filepath.Join(t.TempDir(), "nope.toml")))
}
