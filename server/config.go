// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package server

import (
	"os"

	"github.com/pelletier/go-toml"

	"github.com/hshadab/robotics-simulation/errors"
)

// Config represents the configuration for the robosim server.
type Config struct {
	// Bind is the host:port on which the server will listen.
	Bind string `toml:"bind"`

	// Verbose toggles debug logging.
	Verbose bool `toml:"verbose"`

	// Hub configures the remote hosting collaborator.
	Hub struct {
		// Endpoint is the hub base URL. Empty means the public hub.
		Endpoint string `toml:"endpoint"`
		// RetryMax bounds transport-level retries. Retries happen only
		// in the hub client, never in the conversion pipeline.
		RetryMax int `toml:"retry-max"`
	} `toml:"hub"`

	// HTTP Handler options
	Handler struct {
		// CORS Allowed Origins
		AllowedOrigins []string `toml:"allowed-origins"`
	} `toml:"handler"`
}

// NewConfig returns an instance of Config with default options.
func NewConfig() *Config {
	c := &Config{
		Bind: ":8000",
	}
	c.Hub.RetryMax = 3
	c.Handler.AllowedOrigins = []string{"*"}
	return c
}

// LoadConfig applies a TOML config file on top of the receiver.
func (c *Config) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parsing config file %s", path)
	}
	return nil
}
