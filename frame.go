// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

// FieldBag holds the recognized optional entries of an observation or
// action record. The recorder emits free-form maps; by the time data
// reaches the pipeline it has been narrowed to the two entries that are
// structurally significant: a fixed-length numeric vector and an opaque
// image blob. A nil slice means the entry was absent, which is distinct
// from an empty-but-present vector.
type FieldBag struct {
	// State is the joint/target position vector, if recorded.
	State []float64

	// Image is an opaque encoded camera frame, if recorded. Images are
	// deliberately excluded from the inferred vector schema.
	Image []byte
}

// HasState reports whether the bag carries a numeric vector.
func (b FieldBag) HasState() bool { return b.State != nil }

// HasImage reports whether the bag carries an image blob.
func (b FieldBag) HasImage() bool { return b.Image != nil }

// Frame is a single time-sampled observation/action pair within an
// episode. Frame indices are not stored here; they are assigned in
// emission order during transposition.
type Frame struct {
	Timestamp   float64
	Observation FieldBag
	Action      FieldBag
}

// Episode is one contiguous recorded trajectory of frames.
type Episode struct {
	// EpisodeIndex is the caller-assigned, non-negative identifier.
	EpisodeIndex int

	Frames []Frame

	// Task is the natural-language instruction for the episode. Empty
	// means unspecified; TaskText substitutes DefaultTask.
	Task string
}

// TaskText returns the episode's task description, falling back to
// DefaultTask when none was recorded.
func (e Episode) TaskText() string {
	if e.Task == "" {
		return DefaultTask
	}
	return e.Task
}

// TotalFrames sums the frame counts of all episodes.
func TotalFrames(episodes []Episode) int {
	var n int
	for i := range episodes {
		n += len(episodes[i].Frames)
	}
	return n
}

// FirstFrame returns the first frame of the first non-empty episode, or
// nil if every episode is empty. It is the sample used for schema
// inference.
func FirstFrame(episodes []Episode) *Frame {
	for i := range episodes {
		if len(episodes[i].Frames) > 0 {
			return &episodes[i].Frames[0]
		}
	}
	return nil
}
