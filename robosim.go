// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0

// Package robosim converts recorded robot-episode traces into a
// LeRobot-style columnar dataset: one parquet data file plus sidecar
// metadata describing schema, episode boundaries and task labels.
//
// The conversion pipeline is strictly linear. A task registry assigns
// stable indices to task descriptions, the schema inferencer derives
// field shapes from a sample frame, the transposer turns rows into
// null-aware columns, the metadata synthesizer computes the dataset
// descriptor, and the writer lays the artifacts out on disk. Remote
// concerns (token validation, repository creation, folder upload) live
// behind the HubClient interface and are implemented by the hub
// package.
package robosim

// CodebaseVersion is the LeRobot dataset format version written to
// meta/info.json.
const CodebaseVersion = "v3.0"

// DefaultFPS is assumed when the caller does not declare a capture
// rate. Frame timestamps left unset by the recorder default to
// frameIndex/fps.
const DefaultFPS = 30

// DefaultTask labels episodes that carry no language instruction.
const DefaultTask = "manipulation task"

// PlaceholderStateDim is the vector dimension reported in dataset
// metadata when no frame was available to infer a real one. Six matches
// a five-joint arm plus gripper.
const PlaceholderStateDim = 6
