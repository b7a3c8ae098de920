// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

import (
	"context"
	"fmt"
	"os"

	"github.com/hshadab/robotics-simulation/errors"
	"github.com/hshadab/robotics-simulation/logger"
)

// Error codes returned by the conversion pipeline. Only the transport
// boundary translates these into response statuses.
const (
	// ErrInvalidAuth means the remote hub rejected the caller's
	// credential. The rejection is surfaced verbatim and never retried
	// here.
	ErrInvalidAuth errors.Code = "InvalidAuth"

	// ErrRepoCreationFailure means the remote repository could not be
	// created or ensured.
	ErrRepoCreationFailure errors.Code = "RepoCreationFailure"

	// ErrSchemaMismatch means a vector field's observed dimension
	// disagrees with the inferred schema.
	ErrSchemaMismatch errors.Code = "SchemaMismatch"

	// ErrEmptyInput means no frames were supplied where the output must
	// be non-trivial.
	ErrEmptyInput errors.Code = "EmptyInput"

	// ErrUploadFailure means the hand-off to the upload collaborator
	// failed.
	ErrUploadFailure errors.Code = "UploadFailure"
)

// HubClient is the narrow interface to the remote hosting collaborator.
// Credential validation, repository creation and folder transfer are
// out of scope for the conversion core; retry and timeout policy belong
// to implementations.
type HubClient interface {
	// WhoAmI validates the token and returns the account name it
	// belongs to.
	WhoAmI(ctx context.Context, token string) (string, error)

	// EnsureRepo creates the dataset repository if it does not already
	// exist.
	EnsureRepo(ctx context.Context, token, repoID string, private bool) error

	// UploadFolder transfers the staged dataset directory to the
	// repository.
	UploadFolder(ctx context.Context, token, repoID, dir string) error
}

// UploadRequest carries everything needed to convert and publish one
// dataset.
type UploadRequest struct {
	Episodes []Episode
	Metadata DatasetMetadata

	// Token is forwarded opaquely to the hub.
	Token    string
	RepoName string
	Private  bool
}

// UploadResponse reports a completed upload.
type UploadResponse struct {
	Success bool
	RepoURL string
	Message string
}

// ConvertResult is the outcome of the direct-conversion entry point.
type ConvertResult struct {
	Parquet []byte
	NumRows int
}

// API executes conversion requests. It holds only immutable
// collaborators, so one value may serve concurrent requests; every
// registry, table and scratch directory is request-scoped.
type API struct {
	hub    HubClient
	logger logger.Logger
}

// apiOption is a functional option type for API.
type apiOption func(*API) error

func OptAPILogger(l logger.Logger) apiOption {
	return func(api *API) error {
		api.logger = l
		return nil
	}
}

// NewAPI returns an API backed by the given hub collaborator.
func NewAPI(hub HubClient, opts ...apiOption) (*API, error) {
	api := &API{
		hub:    hub,
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		if err := opt(api); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	return api, nil
}

// UploadDataset converts the episodes into a dataset directory and
// hands it to the hub. The pipeline is linear: registry, inference,
// transposition, synthesis, writing, upload. Any failure discards the
// scratch directory before anything reaches the upload boundary, so
// partial artifact sets are never visible to the collaborator.
//
// An empty episode set is permitted here and produces a metadata-only
// dataset with placeholder shapes; the direct-conversion path rejects
// it instead (see ConvertEpisodes).
func (api *API) UploadDataset(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	username, err := api.hub.WhoAmI(ctx, req.Token)
	if err != nil {
		return nil, errors.New(ErrInvalidAuth, fmt.Sprintf("invalid hub token: %v", err))
	}
	repoID := username + "/" + req.RepoName

	if err := api.hub.EnsureRepo(ctx, req.Token, repoID, req.Private); err != nil {
		return nil, errors.New(ErrRepoCreationFailure, fmt.Sprintf("failed to create repo %s: %v", repoID, err))
	}

	scratch, err := os.MkdirTemp("", "robosim-dataset-")
	if err != nil {
		return nil, errors.Wrap(err, "creating scratch directory")
	}
	defer os.RemoveAll(scratch)

	registry := NewTaskRegistry()
	for _, episode := range req.Episodes {
		registry.Register(episode.TaskText())
	}

	specs := InferSchema(FirstFrame(req.Episodes))

	table, err := Transpose(req.Episodes, specs, func(e Episode) int {
		idx, _ := registry.Index(e.TaskText())
		return idx
	})
	if err != nil {
		return nil, err
	}
	defer table.Release()

	info := Synthesize(req.Episodes, specs, req.Metadata)

	if err := WriteDataset(scratch, table, info, EpisodeRecords(req.Episodes), registry, repoID); err != nil {
		return nil, errors.Wrap(err, "staging dataset")
	}

	api.logger.Debugf("staged dataset %s: %d episodes, %d frames, %d tasks",
		repoID, info.TotalEpisodes, info.TotalFrames, registry.Len())

	if err := api.hub.UploadFolder(ctx, req.Token, repoID, scratch); err != nil {
		return nil, errors.New(ErrUploadFailure, fmt.Sprintf("uploading dataset to %s: %v", repoID, err))
	}

	return &UploadResponse{
		Success: true,
		RepoURL: "https://huggingface.co/datasets/" + repoID,
		Message: fmt.Sprintf("Successfully uploaded %d episodes to %s", len(req.Episodes), repoID),
	}, nil
}

// ConvertEpisodes converts the episodes and returns the encoded
// columnar bytes directly, with no metadata sidecars and no upload. An
// input without a single frame is rejected with EmptyInput rather than
// silently emitting an empty table.
func (api *API) ConvertEpisodes(ctx context.Context, episodes []Episode) (*ConvertResult, error) {
	if TotalFrames(episodes) == 0 {
		return nil, errors.New(ErrEmptyInput, "no frames to convert")
	}

	registry := NewTaskRegistry()
	for _, episode := range episodes {
		registry.Register(episode.TaskText())
	}

	specs := InferSchema(FirstFrame(episodes))

	table, err := Transpose(episodes, specs, func(e Episode) int {
		idx, _ := registry.Index(e.TaskText())
		return idx
	})
	if err != nil {
		return nil, err
	}
	defer table.Release()

	data, err := EncodeTable(table)
	if err != nil {
		return nil, err
	}
	return &ConvertResult{
		Parquet: data,
		NumRows: int(table.NumRows()),
	}, nil
}
