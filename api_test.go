// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	robosim "github.com/hshadab/robotics-simulation"
	"github.com/hshadab/robotics-simulation/errors"
)

// mockHub is a scriptable HubClient.
type mockHub struct {
	whoAmI       func(ctx context.Context, token string) (string, error)
	ensureRepo   func(ctx context.Context, token, repoID string, private bool) error
	uploadFolder func(ctx context.Context, token, repoID, dir string) error

	uploadedDir    string
	uploadedRepoID string
}

func (m *mockHub) WhoAmI(ctx context.Context, token string) (string, error) {
	if m.whoAmI != nil {
		return m.whoAmI(ctx, token)
	}
	return "alice", nil
}

func (m *mockHub) EnsureRepo(ctx context.Context, token, repoID string, private bool) error {
	if m.ensureRepo != nil {
		return m.ensureRepo(ctx, token, repoID, private)
	}
	return nil
}

func (m *mockHub) UploadFolder(ctx context.Context, token, repoID, dir string) error {
	m.uploadedDir = dir
	m.uploadedRepoID = repoID
	if m.uploadFolder != nil {
		return m.uploadFolder(ctx, token, repoID, dir)
	}
	return nil
}

func uploadEpisodes() []robosim.Episode {
	return []robosim.Episode{
		{
			EpisodeIndex: 0,
			Task:         "pick",
			Frames: []robosim.Frame{
				vecFrame(0, []float64{0, 1, 2, 3, 4, 5}, []float64{0, 1, 2, 3, 4, 5}),
				vecFrame(1.0/30.0, []float64{1, 2, 3, 4, 5, 6}, nil),
			},
		},
	}
}

func TestAPIUploadDataset(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		hub := &mockHub{}
		var sawFiles []string
		hub.uploadFolder = func(ctx context.Context, token, repoID, dir string) error {
			// The staged directory must be complete at hand-off time.
			for _, name := range []string{
				"data/train-00000-of-00001.parquet",
				"meta/info.json",
				"meta/episodes.jsonl",
				"meta/tasks.jsonl",
				"README.md",
			} {
				if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err == nil {
					sawFiles = append(sawFiles, name)
				}
			}
			return nil
		}
		api, err := robosim.NewAPI(hub)
		require.NoError(t, err)

		resp, err := api.UploadDataset(context.Background(), &robosim.UploadRequest{
			Episodes: uploadEpisodes(),
			Metadata: robosim.DatasetMetadata{RobotType: "so_arm100"},
			Token:    "hf_token",
			RepoName: "demo",
			Private:  true,
		})
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, "alice/demo", hub.uploadedRepoID)
		assert.Equal(t, "https://huggingface.co/datasets/alice/demo", resp.RepoURL)
		assert.Contains(t, resp.Message, "1 episodes")
		assert.Len(t, sawFiles, 5)

		// The scratch workspace is discarded after hand-off.
		_, err = os.Stat(hub.uploadedDir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("InvalidAuth", func(t *testing.T) {
		hub := &mockHub{
			whoAmI: func(ctx context.Context, token string) (string, error) {
				return "", errors.Errorf("401: invalid credentials")
			},
			ensureRepo: func(ctx context.Context, token, repoID string, private bool) error {
				t.Error("repo creation must not run with a rejected token")
				return nil
			},
		}
		api, err := robosim.NewAPI(hub)
		require.NoError(t, err)

		_, err = api.UploadDataset(context.Background(), &robosim.UploadRequest{RepoName: "demo"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, robosim.ErrInvalidAuth))
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("RepoCreationFailure", func(t *testing.T) {
		hub := &mockHub{
			ensureRepo: func(ctx context.Context, token, repoID string, private bool) error {
				return errors.Errorf("quota exceeded")
			},
		}
		api, err := robosim.NewAPI(hub)
		require.NoError(t, err)

		_, err = api.UploadDataset(context.Background(), &robosim.UploadRequest{RepoName: "demo"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, robosim.ErrRepoCreationFailure))
		assert.Empty(t, hub.uploadedDir)
	})

	t.Run("UploadFailure", func(t *testing.T) {
		hub := &mockHub{
			uploadFolder: func(ctx context.Context, token, repoID, dir string) error {
				return errors.Errorf("connection reset")
			},
		}
		api, err := robosim.NewAPI(hub)
		require.NoError(t, err)

		_, err = api.UploadDataset(context.Background(), &robosim.UploadRequest{
			Episodes: uploadEpisodes(),
			RepoName: "demo",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, robosim.ErrUploadFailure))
	})

	t.Run("SchemaMismatchAbortsBeforeUpload", func(t *testing.T) {
		hub := &mockHub{}
		api, err := robosim.NewAPI(hub)
		require.NoError(t, err)

		episodes := []robosim.Episode{
			{Frames: []robosim.Frame{
				vecFrame(0, []float64{0, 1, 2, 3, 4, 5}, nil),
				vecFrame(0.1, []float64{0, 1, 2, 3, 4}, nil),
			}},
		}
		_, err = api.UploadDataset(context.Background(), &robosim.UploadRequest{
			Episodes: episodes,
			RepoName: "demo",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, robosim.ErrSchemaMismatch))
		assert.Empty(t, hub.uploadedDir, "no partial artifact set may reach the upload boundary")
	})

	t.Run("EmptyEpisodesStillUploads", func(t *testing.T) {
		// The metadata-producing path defaults instead of failing.
		hub := &mockHub{}
		api, err := robosim.NewAPI(hub)
		require.NoError(t, err)

		resp, err := api.UploadDataset(context.Background(), &robosim.UploadRequest{RepoName: "empty"})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "alice/empty", hub.uploadedRepoID)
	})
}

func TestAPIConvertEpisodes(t *testing.T) {
	api, err := robosim.NewAPI(&mockHub{})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		result, err := api.ConvertEpisodes(context.Background(), uploadEpisodes())
		require.NoError(t, err)
		assert.Equal(t, 2, result.NumRows)

		tbl := readParquet(t, result.Parquet)
		defer tbl.Release()
		assert.Equal(t, int64(2), tbl.NumRows())
	})

	t.Run("EmptyInput", func(t *testing.T) {
		// The direct-conversion path rejects an empty frame set.
		_, err := api.ConvertEpisodes(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, robosim.ErrEmptyInput))

		_, err = api.ConvertEpisodes(context.Background(), []robosim.Episode{{EpisodeIndex: 0}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, robosim.ErrEmptyInput))
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := api.ConvertEpisodes(context.Background(), uploadEpisodes())
		require.NoError(t, err)
		b, err := api.ConvertEpisodes(context.Background(), uploadEpisodes())
		require.NoError(t, err)
		assert.Equal(t, a.NumRows, b.NumRows)
		assert.Equal(t, a.Parquet, b.Parquet)
	})
}
