// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

import (
	"fmt"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"

	"github.com/hshadab/robotics-simulation/errors"
)

// ColumnTable is the transposed dataset: one arrow column per declared
// field, every column exactly as long as the total frame count. Null
// entries are explicit in the arrow validity bitmaps, never sentinel
// values.
type ColumnTable struct {
	specs  []FieldSpec
	schema *arrow.Schema
	record arrow.Record
}

// Specs returns the declared field specs in column order.
func (t *ColumnTable) Specs() []FieldSpec { return t.specs }

// Schema returns the arrow schema of the table.
func (t *ColumnTable) Schema() *arrow.Schema { return t.schema }

// Record returns the backing arrow record. The table retains ownership.
func (t *ColumnTable) Record() arrow.Record { return t.record }

// NumRows returns the row count, equal to the total frame count of the
// transposed episodes.
func (t *ColumnTable) NumRows() int64 { return t.record.NumRows() }

// Release frees the arrow buffers backing the table.
func (t *ColumnTable) Release() { t.record.Release() }

// Transpose builds one column per schema field across all frames of all
// episodes. Frame indices restart at zero for each episode and follow
// emission order; episode indices are copied from the episodes; task
// indices come from taskIndex, normally backed by the request's
// TaskRegistry.
//
// A present vector is coerced element-wise to float32. An absent vector
// becomes a null entry for that row, so the column-length invariant
// holds regardless of which frames recorded which fields. A present
// vector whose length disagrees with the schema dimension aborts the
// transposition with a SchemaMismatch error and no table is returned.
func Transpose(episodes []Episode, specs []FieldSpec, taskIndex func(Episode) int) (*ColumnTable, error) {
	schema := ArrowSchema(specs)
	rb := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer rb.Release()

	for _, episode := range episodes {
		for frameIdx, frame := range episode.Frames {
			for i, spec := range specs {
				switch spec.Name {
				case FieldEpisodeIndex:
					rb.Field(i).(*array.Int64Builder).Append(int64(episode.EpisodeIndex))
				case FieldFrameIndex:
					rb.Field(i).(*array.Int64Builder).Append(int64(frameIdx))
				case FieldTimestamp:
					rb.Field(i).(*array.Float64Builder).Append(frame.Timestamp)
				case FieldTaskIndex:
					rb.Field(i).(*array.Int64Builder).Append(int64(taskIndex(episode)))
				default:
					if err := appendVector(rb.Field(i), spec, vectorSource(spec, frame), episode.EpisodeIndex, frameIdx); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return &ColumnTable{
		specs:  specs,
		schema: schema,
		record: rb.NewRecord(),
	}, nil
}

// vectorSource selects the frame bag a vector field reads from.
func vectorSource(spec FieldSpec, frame Frame) []float64 {
	switch spec.Name {
	case FieldObservationState:
		return frame.Observation.State
	case FieldAction:
		return frame.Action.State
	}
	return nil
}

func appendVector(b array.Builder, spec FieldSpec, vec []float64, episodeIdx, frameIdx int) error {
	fb := b.(*array.FixedSizeListBuilder)
	if vec == nil {
		fb.AppendNull()
		return nil
	}
	if len(vec) != spec.Dim {
		return errors.New(ErrSchemaMismatch, fmt.Sprintf(
			"field %q in episode %d frame %d has %d elements, schema declares %d",
			spec.Name, episodeIdx, frameIdx, len(vec), spec.Dim))
	}
	fb.Append(true)
	vb := fb.ValueBuilder().(*array.Float32Builder)
	for _, v := range vec {
		vb.Append(float32(v))
	}
	return nil
}
