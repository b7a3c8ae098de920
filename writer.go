// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"github.com/hshadab/robotics-simulation/errors"
)

// On-disk layout of a dataset directory.
const (
	DataFileName     = "data/train-00000-of-00001.parquet"
	InfoFileName     = "meta/info.json"
	EpisodesFileName = "meta/episodes.jsonl"
	TasksFileName    = "meta/tasks.jsonl"
	ReadmeFileName   = "README.md"
)

// parquetChunkSize is the arrow row-group chunking passed to the
// parquet writer.
const parquetChunkSize = 4096

// WriteDataset lays a complete dataset out under dir:
//
//	data/train-00000-of-00001.parquet
//	meta/info.json
//	meta/episodes.jsonl
//	meta/tasks.jsonl
//	README.md
//
// The parquet file is omitted when the table has no rows; the sidecars
// are always written so even an empty dataset is well-formed. Callers
// stage dir in a scratch location and only hand it to the upload
// collaborator after WriteDataset returns nil.
func WriteDataset(dir string, table *ColumnTable, info *DatasetInfo, episodes []EpisodeRecord, registry *TaskRegistry, repoID string) error {
	for _, sub := range []string{"data", "meta"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return errors.Wrap(err, "creating dataset directory")
		}
	}

	if table != nil && table.NumRows() > 0 {
		if err := writeParquetFile(filepath.Join(dir, filepath.FromSlash(DataFileName)), table); err != nil {
			return errors.Wrap(err, "writing parquet data")
		}
	}

	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding dataset info")
	}
	if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(InfoFileName)), infoJSON, 0o644); err != nil {
		return errors.Wrap(err, "writing info.json")
	}

	if err := writeJSONLines(filepath.Join(dir, filepath.FromSlash(EpisodesFileName)), len(episodes), func(i int) interface{} {
		return episodes[i]
	}); err != nil {
		return errors.Wrap(err, "writing episodes.jsonl")
	}

	tasks := TaskRecords(registry)
	if err := writeJSONLines(filepath.Join(dir, filepath.FromSlash(TasksFileName)), len(tasks), func(i int) interface{} {
		return tasks[i]
	}); err != nil {
		return errors.Wrap(err, "writing tasks.jsonl")
	}

	if err := os.WriteFile(filepath.Join(dir, ReadmeFileName), []byte(DatasetCard(repoID, info)), 0o644); err != nil {
		return errors.Wrap(err, "writing dataset card")
	}
	return nil
}

// EncodeTable serializes the table to parquet bytes in memory. It is
// the backing for the direct-conversion entry point that returns data
// to the caller instead of staging a dataset directory.
func EncodeTable(table *ColumnTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeParquet(&buf, table); err != nil {
		return nil, errors.Wrap(err, "encoding parquet")
	}
	return buf.Bytes(), nil
}

func writeParquetFile(name string, table *ColumnTable) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := writeParquet(f, table); err != nil {
		f.Close()
		return err
	}
	// pqarrow.WriteTable closes the sink itself; closing f again would
	// fail with os.ErrClosed.
	return nil
}

func writeParquet(w io.Writer, table *ColumnTable) error {
	tbl := array.NewTableFromRecords(table.Schema(), []arrow.Record{table.Record()})
	defer tbl.Release()
	props := parquet.NewWriterProperties(parquet.WithDictionaryDefault(false))
	// Store the arrow schema in the file metadata so readers recover
	// fixed-size list types instead of plain lists.
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	return pqarrow.WriteTable(tbl, w, parquetChunkSize, props, arrProps)
}

func writeJSONLines(name string, n int, record func(int) interface{}) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for i := 0; i < n; i++ {
		if err := enc.Encode(record(i)); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// DatasetCard renders the human-readable README.md with license/tag
// front-matter and usage snippets referencing the dataset identifier.
func DatasetCard(repoID string, info *DatasetInfo) string {
	return fmt.Sprintf(`---
license: apache-2.0
task_categories:
  - robotics
tags:
  - LeRobot
  - robotics
  - manipulation
---

# %s

Robot manipulation dataset created with [RoboSim](https://github.com/hshadab/robotics-simulation).

## Dataset Information

- **Robot Type**: %s
- **Total Episodes**: %d
- **Total Frames**: %d
- **FPS**: %d

## Usage

`+"```python"+`
from lerobot.common.datasets.lerobot_dataset import LeRobotDataset

dataset = LeRobotDataset("%s")
`+"```"+`

## Training

`+"```bash"+`
python -m lerobot.scripts.train \
    --dataset.repo_id=%s \
    --policy.type=act
`+"```"+`
`, path.Base(repoID), info.RobotType, info.TotalEpisodes, info.TotalFrames, info.FPS, repoID, repoID)
}
