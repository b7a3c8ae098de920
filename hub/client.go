// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0

// Package hub implements the remote hosting collaborator: credential
// validation, dataset-repository creation and folder upload against a
// HuggingFace-compatible hub API. The conversion core consumes it only
// through the robosim.HubClient interface; retry policy lives here, on
// the transport side of that boundary.
package hub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// DefaultEndpoint is the public hub.
const DefaultEndpoint = "https://huggingface.co"

// defaultTimeout bounds a single upload attempt. Callers wanting a
// tighter bound pass a deadline context.
const defaultTimeout = time.Minute * 5

// Client talks to the hub REST API.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
}

// clientOption is a functional option type for Client.
type clientOption func(c *Client)

func OptClientRetryMax(n int) clientOption {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

func OptClientTimeout(d time.Duration) clientOption {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = d
	}
}

// NewClient returns a hub client for the given endpoint, defaulting to
// the public hub when endpoint is empty.
func NewClient(endpoint string, opts ...clientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	hc := retryablehttp.NewClient()
	hc.Logger = nil
	hc.RetryMax = 3
	hc.HTTPClient.Timeout = defaultTimeout
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WhoAmI validates the token and returns the account name it belongs
// to.
func (c *Client) WhoAmI(ctx context.Context, token string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/whoami-v2", token, "", nil)
	if err != nil {
		return "", errors.Wrap(err, "validating token")
	}
	var who struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &who); err != nil {
		return "", errors.Wrapf(err, "decoding whoami response, body:\n%s", body)
	}
	if who.Name == "" {
		return "", errors.Errorf("whoami response carries no account name: %s", body)
	}
	return who.Name, nil
}

// EnsureRepo creates the dataset repository, treating an
// already-existing repository as success.
func (c *Client) EnsureRepo(ctx context.Context, token, repoID string, private bool) error {
	owner, name := splitRepoID(repoID)
	createReq := struct {
		Name         string `json:"name"`
		Organization string `json:"organization,omitempty"`
		Type         string `json:"type"`
		Private      bool   `json:"private"`
	}{
		Name:         name,
		Organization: owner,
		Type:         "dataset",
		Private:      private,
	}
	payload, err := json.Marshal(createReq)
	if err != nil {
		return errors.Wrap(err, "encoding create request")
	}
	_, err = c.do(ctx, http.MethodPost, "/api/repos/create", token, "application/json", payload)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusConflict {
			// exists already
			return nil
		}
		return errors.Wrapf(err, "creating repo %s", repoID)
	}
	return nil
}

// UploadFolder transfers every file under dir to the repository in a
// single commit, preserving relative paths.
func (c *Client) UploadFolder(ctx context.Context, token, repoID, dir string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	header := commitLine{
		Key: "header",
		Value: map[string]string{
			"summary":     "Upload dataset from RoboSim",
			"description": "",
		},
	}
	if err := enc.Encode(header); err != nil {
		return errors.Wrap(err, "encoding commit header")
	}

	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		return enc.Encode(commitLine{
			Key: "file",
			Value: map[string]string{
				"path":     filepath.ToSlash(rel),
				"content":  base64.StdEncoding.EncodeToString(content),
				"encoding": "base64",
			},
		})
	})
	if err != nil {
		return errors.Wrap(err, "staging commit payload")
	}

	path := fmt.Sprintf("/api/datasets/%s/commit/main", repoID)
	if _, err := c.do(ctx, http.MethodPost, path, token, "application/x-ndjson", buf.Bytes()); err != nil {
		return errors.Wrapf(err, "committing folder to %s", repoID)
	}
	return nil
}

// commitLine is one NDJSON line of a hub commit payload.
type commitLine struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// statusError carries a non-2xx response for callers that branch on
// status, like EnsureRepo's exist-ok handling.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d, full body: '%s'", e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body []byte) ([]byte, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequest(method, c.endpoint+path, rawBody)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "executing request")
	}
	defer resp.Body.Close()

	fullbod, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading hub response")
	}
	if resp.StatusCode/100 != 2 {
		return nil, &statusError{status: resp.StatusCode, body: string(fullbod)}
	}
	return fullbod, nil
}

func splitRepoID(repoID string) (owner, name string) {
	if i := strings.LastIndex(repoID, "/"); i >= 0 {
		return repoID[:i], repoID[i+1:]
	}
	return "", repoID
}
