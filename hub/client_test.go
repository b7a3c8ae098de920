// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package hub_test

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hshadab/robotics-simulation/hub"
)

func newClient(t *testing.T, handler http.HandlerFunc) *hub.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	// Disable retries so failure tests return promptly.
	return hub.NewClient(srv.URL, hub.OptClientRetryMax(0))
}

func TestClientWhoAmI(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/whoami-v2", r.URL.Path)
			assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
			w.Write([]byte(`{"name":"alice","type":"user"}`))
		})

		name, err := c.WhoAmI(context.Background(), "hf_test")
		require.NoError(t, err)
		assert.Equal(t, "alice", name)
	})

	t.Run("Rejected", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		})

		_, err := c.WhoAmI(context.Background(), "bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestClientEnsureRepo(t *testing.T) {
	t.Run("Creates", func(t *testing.T) {
		var got map[string]interface{}
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/repos/create", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"url":"https://huggingface.co/datasets/alice/demo"}`))
		})

		require.NoError(t, c.EnsureRepo(context.Background(), "hf_test", "alice/demo", true))
		assert.Equal(t, "demo", got["name"])
		assert.Equal(t, "dataset", got["type"])
		assert.Equal(t, true, got["private"])
	})

	t.Run("ExistsIsOK", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"You already created this dataset repo"}`, http.StatusConflict)
		})

		assert.NoError(t, c.EnsureRepo(context.Background(), "hf_test", "alice/demo", true))
	})

	t.Run("Forbidden", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		})

		assert.Error(t, c.EnsureRepo(context.Background(), "hf_test", "alice/demo", true))
	})
}

func TestClientUploadFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "meta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta", "info.json"), []byte("{}"), 0o644))

	type line struct {
		Key   string            `json:"key"`
		Value map[string]string `json:"value"`
	}

	var lines []line
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/datasets/alice/demo/commit/main", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var l line
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &l))
			lines = append(lines, l)
		}
		w.Write([]byte(`{"commitUrl":"https://huggingface.co/datasets/alice/demo/commit/abc"}`))
	})

	require.NoError(t, c.UploadFolder(context.Background(), "hf_test", "alice/demo", dir))
	require.Len(t, lines, 3)
	assert.Equal(t, "header", lines[0].Key)

	files := map[string]string{}
	for _, l := range lines[1:] {
		assert.Equal(t, "file", l.Key)
		assert.Equal(t, "base64", l.Value["encoding"])
		files[l.Value["path"]] = l.Value["content"]
	}
	content, err := base64.StdEncoding.DecodeString(files["README.md"])
	require.NoError(t, err)
	assert.Equal(t, "# demo", string(content))
	assert.Contains(t, files, "meta/info.json")
}
