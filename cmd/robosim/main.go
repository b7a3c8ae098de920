// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hshadab/robotics-simulation/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	conf := server.NewConfig()
	var configFile string

	cmd := &cobra.Command{
		Use:   "robosim",
		Short: "Convert robot-episode traces into LeRobot datasets",
		Long: `robosim runs the dataset conversion service: it accepts recorded
robot episodes over HTTP, converts them into a parquet dataset with
sidecar metadata, and hands the result to the configured hub for
hosting.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags explicitly set on the command line win over the
			// config file. Flags are bound straight into conf, so
			// snapshot their values before the file overwrites them.
			if configFile != "" {
				fromFlags := *conf
				if err := conf.LoadConfig(configFile); err != nil {
					return err
				}
				restoreChangedFlags(cmd.Flags(), conf, &fromFlags)
			}
			return runServer(conf)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to TOML config file")
	flags.StringVar(&conf.Bind, "bind", conf.Bind, "host:port to listen on")
	flags.BoolVar(&conf.Verbose, "verbose", conf.Verbose, "enable debug logging")
	flags.StringVar(&conf.Hub.Endpoint, "hub-endpoint", conf.Hub.Endpoint, "hub base URL (empty for the public hub)")
	flags.IntVar(&conf.Hub.RetryMax, "hub-retry-max", conf.Hub.RetryMax, "max transport retries for hub requests")
	flags.StringSliceVar(&conf.Handler.AllowedOrigins, "allowed-origins", conf.Handler.AllowedOrigins, "CORS allowed origins")

	return cmd
}

func restoreChangedFlags(flags *pflag.FlagSet, conf, fromFlags *server.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "bind":
			conf.Bind = fromFlags.Bind
		case "verbose":
			conf.Verbose = fromFlags.Verbose
		case "hub-endpoint":
			conf.Hub.Endpoint = fromFlags.Hub.Endpoint
		case "hub-retry-max":
			conf.Hub.RetryMax = fromFlags.Hub.RetryMax
		case "allowed-origins":
			conf.Handler.AllowedOrigins = fromFlags.Handler.AllowedOrigins
		}
	})
}

func runServer(conf *server.Config) error {
	srv, err := server.NewServer(conf)
	if err != nil {
		return err
	}
	if err := srv.Open(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	return srv.Close()
}
