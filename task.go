// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

// TaskEntry is one catalogued task description.
type TaskEntry struct {
	Index int
	Task  string
}

// TaskRegistry deduplicates task-description strings into dense integer
// indices assigned in first-seen order. Enumeration reproduces that
// order exactly, so two conversions over the same ordered episode list
// produce identical index assignments and identical sidecar content.
//
// A registry is request-scoped and not safe for concurrent use; the
// pipeline never shares one across requests.
type TaskRegistry struct {
	indexes map[string]int
	entries []TaskEntry
}

// NewTaskRegistry returns an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		indexes: make(map[string]int),
	}
}

// Register returns the index for text, assigning the next unused index
// on first sight.
func (r *TaskRegistry) Register(text string) int {
	if idx, ok := r.indexes[text]; ok {
		return idx
	}
	idx := len(r.entries)
	r.indexes[text] = idx
	r.entries = append(r.entries, TaskEntry{Index: idx, Task: text})
	return idx
}

// Index returns the index previously assigned to text.
func (r *TaskRegistry) Index(text string) (int, bool) {
	idx, ok := r.indexes[text]
	return idx, ok
}

// Entries enumerates all registered tasks in first-seen order. The
// returned slice is a copy.
func (r *TaskRegistry) Entries() []TaskEntry {
	out := make([]TaskEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of distinct tasks registered.
func (r *TaskRegistry) Len() int { return len(r.entries) }
