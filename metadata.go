// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

import "fmt"

// DatasetMetadata is the caller-supplied descriptor accompanying an
// upload request. Declared counts are informational; the synthesized
// dataset info always reports counts computed from the episodes
// actually received.
type DatasetMetadata struct {
	RobotType     string
	FPS           int
	TotalFrames   int
	TotalEpisodes int

	// Features is the recorder's free-form feature map. It is carried
	// for forward compatibility but the emitted schema is always
	// inferred from the data itself.
	Features map[string]interface{}
}

// FeatureInfo describes one feature in meta/info.json.
type FeatureInfo struct {
	Dtype string   `json:"dtype"`
	Shape []int    `json:"shape"`
	Names []string `json:"names"`
}

// Features fixes the emitted feature set and its serialization order.
type Features struct {
	ObservationState FeatureInfo `json:"observation.state"`
	Action           FeatureInfo `json:"action"`
}

// Splits holds the dataset split ranges as half-open "<lo>:<hi>"
// interval strings over frame indices.
type Splits struct {
	Train string `json:"train"`
}

// DatasetInfo is the dataset-level descriptor serialized to
// meta/info.json.
type DatasetInfo struct {
	CodebaseVersion string   `json:"codebase_version"`
	RobotType       string   `json:"robot_type"`
	FPS             int      `json:"fps"`
	TotalEpisodes   int      `json:"total_episodes"`
	TotalFrames     int      `json:"total_frames"`
	Features        Features `json:"features"`
	Splits          Splits   `json:"splits"`
}

// EpisodeRecord is one line of meta/episodes.jsonl.
type EpisodeRecord struct {
	EpisodeIndex int      `json:"episode_index"`
	Tasks        []string `json:"tasks"`
	Length       int      `json:"length"`
}

// TaskRecord is one line of meta/tasks.jsonl.
type TaskRecord struct {
	TaskIndex int    `json:"task_index"`
	Task      string `json:"task"`
}

// Synthesize computes the dataset-level descriptor from the episodes
// and the inferred schema. It never fails: zero episodes produce zero
// counts and placeholder feature shapes, so callers always receive
// well-formed metadata.
func Synthesize(episodes []Episode, specs []FieldSpec, meta DatasetMetadata) *DatasetInfo {
	fps := meta.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	totalFrames := TotalFrames(episodes)
	return &DatasetInfo{
		CodebaseVersion: CodebaseVersion,
		RobotType:       meta.RobotType,
		FPS:             fps,
		TotalEpisodes:   len(episodes),
		TotalFrames:     totalFrames,
		Features: Features{
			ObservationState: featureInfo(specs, FieldObservationState),
			Action:           featureInfo(specs, FieldAction),
		},
		Splits: Splits{
			Train: fmt.Sprintf("0:%d", totalFrames),
		},
	}
}

// EpisodeRecords builds the per-episode sidecar records in input order.
func EpisodeRecords(episodes []Episode) []EpisodeRecord {
	records := make([]EpisodeRecord, len(episodes))
	for i, episode := range episodes {
		records[i] = EpisodeRecord{
			EpisodeIndex: episode.EpisodeIndex,
			Tasks:        []string{episode.TaskText()},
			Length:       len(episode.Frames),
		}
	}
	return records
}

// TaskRecords builds the per-task sidecar records in registry
// enumeration order.
func TaskRecords(registry *TaskRegistry) []TaskRecord {
	entries := registry.Entries()
	records := make([]TaskRecord, len(entries))
	for i, entry := range entries {
		records[i] = TaskRecord{TaskIndex: entry.Index, Task: entry.Task}
	}
	return records
}

func featureInfo(specs []FieldSpec, name string) FeatureInfo {
	dim := PlaceholderStateDim
	if spec, ok := findSpec(specs, name); ok {
		dim = spec.Dim
	}
	return FeatureInfo{
		Dtype: "float32",
		Shape: []int{dim},
		Names: motorNames(dim),
	}
}

// motorNames labels vector elements. The conventional five-joint arm
// plus gripper keeps its historical names; any other dimension gets
// plain joint labels.
func motorNames(dim int) []string {
	if dim == 6 {
		return []string{"joint_1", "joint_2", "joint_3", "joint_4", "joint_5", "gripper"}
	}
	names := make([]string, dim)
	for i := range names {
		names[i] = fmt.Sprintf("joint_%d", i+1)
	}
	return names
}
