// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

import (
	"github.com/apache/arrow/go/v10/arrow"
)

// Column names of the emitted dataset. The four scalar fields are
// always present; the vector fields appear only when the sample frame
// carries the corresponding entry.
const (
	FieldEpisodeIndex     = "episode_index"
	FieldFrameIndex       = "frame_index"
	FieldTimestamp        = "timestamp"
	FieldTaskIndex        = "task_index"
	FieldObservationState = "observation.state"
	FieldAction           = "action"
)

// FieldKind enumerates the storage types a dataset column can have.
type FieldKind int

const (
	// KindInt64 is a 64-bit integer scalar.
	KindInt64 FieldKind = iota
	// KindFloat64 is a 64-bit float scalar.
	KindFloat64
	// KindVector is a fixed-length list of 32-bit floats.
	KindVector
)

func (k FieldKind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindVector:
		return "fixed-vector"
	}
	return "unknown"
}

// FieldSpec declares one column of the dataset: its name, storage kind,
// vector dimensionality (zero for scalars) and nullability.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Dim      int
	Nullable bool
}

// ArrowField maps the spec onto the arrow type system. Vectors become
// fixed-size lists of float32; the element count is part of the type,
// so readers recover the dimension without consulting the sidecars.
func (f FieldSpec) ArrowField() arrow.Field {
	af := arrow.Field{Name: f.Name, Nullable: f.Nullable}
	switch f.Kind {
	case KindFloat64:
		af.Type = arrow.PrimitiveTypes.Float64
	case KindVector:
		af.Type = arrow.FixedSizeListOf(int32(f.Dim), arrow.PrimitiveTypes.Float32)
	default:
		af.Type = arrow.PrimitiveTypes.Int64
	}
	return af
}

// ArrowSchema builds the arrow schema for a list of field specs.
func ArrowSchema(specs []FieldSpec) *arrow.Schema {
	fields := make([]arrow.Field, len(specs))
	for i, spec := range specs {
		fields[i] = spec.ArrowField()
	}
	return arrow.NewSchema(fields, nil)
}

// InferSchema derives the dataset field list from a sample frame,
// normally the first frame of the first non-empty episode (see
// FirstFrame). The four scalar fields are unconditional. A vector field
// is added for the observation state and for the action when the
// sample's bag carries one, with the dimension fixed to the sample
// vector's length. Image entries never contribute to the vector schema.
//
// A nil sample yields the four scalar fields only; callers that must
// report vector shapes for an empty dataset apply a placeholder
// dimension downstream (see Synthesize).
func InferSchema(sample *Frame) []FieldSpec {
	specs := []FieldSpec{
		{Name: FieldEpisodeIndex, Kind: KindInt64},
		{Name: FieldFrameIndex, Kind: KindInt64},
		{Name: FieldTimestamp, Kind: KindFloat64},
		{Name: FieldTaskIndex, Kind: KindInt64},
	}
	if sample == nil {
		return specs
	}
	if sample.Observation.HasState() {
		specs = append(specs, FieldSpec{
			Name:     FieldObservationState,
			Kind:     KindVector,
			Dim:      len(sample.Observation.State),
			Nullable: true,
		})
	}
	if sample.Action.HasState() {
		specs = append(specs, FieldSpec{
			Name:     FieldAction,
			Kind:     KindVector,
			Dim:      len(sample.Action.State),
			Nullable: true,
		})
	}
	return specs
}

// findSpec returns the spec with the given name, if declared.
func findSpec(specs []FieldSpec, name string) (FieldSpec, bool) {
	for _, spec := range specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
