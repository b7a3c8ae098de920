// Copyright 2024 RoboSim Authors.
// SPDX-License-Identifier: Apache-2.0
package robosim

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/hshadab/robotics-simulation/errors"
	"github.com/hshadab/robotics-simulation/logger"
)

// Handler represents the HTTP transport boundary. It owns request
// decoding, response encoding and the mapping of pipeline error codes
// to response statuses; all conversion semantics live in the API.
type Handler struct {
	Handler http.Handler

	api *API

	logger logger.Logger

	middleware []func(http.Handler) http.Handler
}

// handlerOption is a functional option type for Handler.
type handlerOption func(h *Handler) error

func OptHandlerAPI(api *API) handlerOption {
	return func(h *Handler) error {
		h.api = api
		return nil
	}
}

func OptHandlerLogger(l logger.Logger) handlerOption {
	return func(h *Handler) error {
		h.logger = l
		return nil
	}
}

func OptHandlerMiddleware(middleware func(http.Handler) http.Handler) handlerOption {
	return func(h *Handler) error {
		h.middleware = append(h.middleware, middleware)
		return nil
	}
}

func OptHandlerAllowedOrigins(origins []string) handlerOption {
	return func(h *Handler) error {
		h.middleware = append(h.middleware, handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowCredentials(),
		))
		return nil
	}
}

// NewHandler returns a new instance of Handler with a default logger.
func NewHandler(opts ...handlerOption) (*Handler, error) {
	h := &Handler{
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	if h.api == nil {
		return nil, errors.New(errors.ErrUncoded, "new handler requires an API")
	}

	var handler http.Handler = newRouter(h)
	for _, middleware := range h.middleware {
		handler = middleware(handler)
	}
	h.Handler = handler
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Handler.ServeHTTP(w, r)
}

func newRouter(handler *Handler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", handler.handleGetHealth).Methods("GET").Name("GetHealth")
	router.HandleFunc("/api/dataset/upload", handler.handlePostDatasetUpload).Methods("POST").Name("PostDatasetUpload")
	router.HandleFunc("/api/dataset/convert", handler.handlePostDatasetConvert).Methods("POST").Name("PostDatasetConvert")
	return router
}

// Wire types mirror the recorder frontend's camelCase JSON.

type fieldBagRequest struct {
	JointPositions  []float64 `json:"jointPositions,omitempty"`
	TargetPositions []float64 `json:"targetPositions,omitempty"`
	Image           string    `json:"image,omitempty"`
}

type frameRequest struct {
	Timestamp   *float64        `json:"timestamp,omitempty"`
	Observation fieldBagRequest `json:"observation"`
	Action      fieldBagRequest `json:"action"`
}

type episodeRequest struct {
	EpisodeIndex int               `json:"episodeIndex"`
	Frames       []frameRequest    `json:"frames"`
	Metadata     map[string]string `json:"metadata"`
}

type datasetMetadataRequest struct {
	RobotType     string                 `json:"robotType"`
	TotalFrames   int                    `json:"totalFrames"`
	TotalEpisodes int                    `json:"totalEpisodes"`
	FPS           int                    `json:"fps"`
	Features      map[string]interface{} `json:"features"`
}

type uploadDatasetRequest struct {
	Episodes    []episodeRequest       `json:"episodes"`
	Metadata    datasetMetadataRequest `json:"metadata"`
	HFToken     string                 `json:"hfToken"`
	RepoName    string                 `json:"repoName"`
	IsPrivate   bool                   `json:"isPrivate"`
	Description string                 `json:"description,omitempty"`
}

type uploadDatasetResponse struct {
	Success bool   `json:"success"`
	RepoURL string `json:"repoUrl"`
	Message string `json:"message"`
}

type convertResponse struct {
	Success       bool   `json:"success"`
	ParquetBase64 string `json:"parquet_base64"`
	NumRows       int    `json:"num_rows"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// decodeEpisodes maps wire episodes onto the closed core model. The
// task text comes from the episode metadata's language instruction;
// missing timestamps default to frameIndex/fps. Action vectors accept
// joint positions, falling back to target positions.
func decodeEpisodes(reqs []episodeRequest, fps int) []Episode {
	if fps <= 0 {
		fps = DefaultFPS
	}
	episodes := make([]Episode, len(reqs))
	for i, er := range reqs {
		episode := Episode{
			EpisodeIndex: er.EpisodeIndex,
			Task:         er.Metadata["languageInstruction"],
			Frames:       make([]Frame, len(er.Frames)),
		}
		for j, fr := range er.Frames {
			frame := Frame{
				Observation: FieldBag{State: fr.Observation.JointPositions},
				Action:      FieldBag{State: fr.Action.JointPositions},
			}
			if fr.Observation.Image != "" {
				frame.Observation.Image = []byte(fr.Observation.Image)
			}
			if frame.Action.State == nil && fr.Action.TargetPositions != nil {
				frame.Action.State = fr.Action.TargetPositions
			}
			if fr.Timestamp != nil {
				frame.Timestamp = *fr.Timestamp
			} else {
				frame.Timestamp = float64(j) / float64(fps)
			}
			episode.Frames[j] = frame
		}
		episodes[i] = episode
	}
	return episodes
}

// handleGetHealth handles GET /health requests.
func (h *Handler) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "healthy", Service: "robosim-api"}); err != nil {
		h.logger.Errorf("write health response error: %s", err)
	}
}

// handlePostDatasetUpload handles POST /api/dataset/upload requests.
func (h *Handler) handlePostDatasetUpload(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var req uploadDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decoding upload request: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Infof("[%s] upload request: repo=%q episodes=%d", requestID, req.RepoName, len(req.Episodes))

	resp, err := h.api.UploadDataset(r.Context(), &UploadRequest{
		Episodes: decodeEpisodes(req.Episodes, req.Metadata.FPS),
		Metadata: DatasetMetadata{
			RobotType:     req.Metadata.RobotType,
			FPS:           req.Metadata.FPS,
			TotalFrames:   req.Metadata.TotalFrames,
			TotalEpisodes: req.Metadata.TotalEpisodes,
			Features:      req.Metadata.Features,
		},
		Token:    req.HFToken,
		RepoName: req.RepoName,
		Private:  req.IsPrivate,
	})
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(uploadDatasetResponse{
		Success: resp.Success,
		RepoURL: resp.RepoURL,
		Message: resp.Message,
	}); err != nil {
		h.logger.Errorf("[%s] write upload response error: %s", requestID, err)
	}
}

// handlePostDatasetConvert handles POST /api/dataset/convert requests.
// The body is a bare episode list; the encoded parquet bytes come back
// base64-encoded for local use, with no upload involved.
func (h *Handler) handlePostDatasetConvert(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var reqs []episodeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, "decoding episode list: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.api.ConvertEpisodes(r.Context(), decodeEpisodes(reqs, DefaultFPS))
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(convertResponse{
		Success:       true,
		ParquetBase64: base64.StdEncoding.EncodeToString(result.Parquet),
		NumRows:       result.NumRows,
	}); err != nil {
		h.logger.Errorf("[%s] write convert response error: %s", requestID, err)
	}
}

// writeError translates a pipeline failure into a response status plus
// a coded-error JSON body. This is the only place codes become HTTP
// semantics.
func (h *Handler) writeError(w http.ResponseWriter, requestID string, err error) {
	status := statusForError(err)
	h.logger.Errorf("[%s] request failed (%d): %s", requestID, status, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, werr := w.Write([]byte(errors.MarshalJSON(err))); werr != nil {
		h.logger.Errorf("[%s] write error response error: %s", requestID, werr)
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrSchemaMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrUploadFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
