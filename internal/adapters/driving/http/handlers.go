package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// VersionResponse represents the API version response
type VersionResponse struct {
	Version string `json:"version"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyResponse reports backing-store readiness and which AI
// capabilities are currently configured
type readyResponse struct {
	Status              string `json:"status"`
	EmbeddingAvailable  bool   `json:"embedding_available"`
	GenerationAvailable bool   `json:"generation_available"`
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	GenerationModel     string `json:"generation_model,omitempty"`
}

// handleReady checks the backing stores. The AI backends are reported
// but not required: the API can serve document listings and accept
// uploads while no model is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "document store unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	resp := readyResponse{Status: "ready"}
	if s.runtimeConfig != nil {
		resp.EmbeddingAvailable = s.runtimeConfig.EmbeddingAvailable()
		resp.GenerationAvailable = s.runtimeConfig.GenerationAvailable()
		resp.EmbeddingModel, resp.GenerationModel = s.runtimeConfig.Models()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Document endpoints

type submitDocumentRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

type submitDocumentResponse struct {
	ID     string                `json:"id"`
	Status domain.DocumentStatus `json:"status"`
}

// handleSubmitDocument accepts a document and queues it for ingestion.
// Processing is asynchronous; poll GET /documents/{id} for the outcome.
func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.ingestService.SubmitDocument(r.Context(), req.Text, req.Filename)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyInput):
			writeError(w, http.StatusBadRequest, "document text is required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit document")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, submitDocumentResponse{
		ID:     id,
		Status: domain.DocumentStatusPending,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documentService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	doc, err := s.documentService.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get document")
		}
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument removes a document and its index entries.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	if err := s.documentService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete document")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Query endpoints

// handleQuery answers a question against the indexed documents. With
// "stream": true the response switches to NDJSON: one context event,
// then one event per answer fragment.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Stream {
		s.streamQuery(w, r, req)
		return
	}

	result, err := s.queryService.AnswerQuery(r.Context(), req)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// streamEvent is one NDJSON line of a streaming query response
type streamEvent struct {
	Type    string                  `json:"type"` // context, fragment, error
	Context []domain.RetrievedChunk `json:"context,omitempty"`
	Text    string                  `json:"text,omitempty"`
	Done    bool                    `json:"done,omitempty"`
	Usage   *domain.Usage           `json:"usage,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) streamQuery(w http.ResponseWriter, r *http.Request, req domain.QueryRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	retrieval, stream, err := s.queryService.AnswerQueryStream(r.Context(), req)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	defer stream.Cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)

	var contextChunks []domain.RetrievedChunk
	if retrieval != nil {
		contextChunks = retrieval.Chunks
	}
	if err := enc.Encode(streamEvent{Type: "context", Context: contextChunks}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			// Client went away; abort the upstream generation.
			return
		case frag, open := <-stream.Fragments():
			if !open {
				if serr := stream.Err(); serr != nil {
					_ = enc.Encode(streamEvent{Type: "error", Error: serr.Error()})
					flusher.Flush()
				}
				return
			}
			ev := streamEvent{Type: "fragment", Text: frag.Text, Done: frag.Done, Usage: frag.Usage}
			if err := enc.Encode(ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type searchRequest struct {
	Query   string                 `json:"query"`
	Options domain.RetrieveOptions `json:"options"`
}

// handleSearch runs retrieval only, without generation.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.queryService.Retrieve(r.Context(), req.Query, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "query is required")
		case errors.Is(err, domain.ErrNoResults):
			writeError(w, http.StatusNotFound, "no results above the similarity floor")
		case errors.Is(err, domain.ErrUpstreamTimeout):
			writeError(w, http.StatusServiceUnavailable, "embedding service timed out")
		case errors.Is(err, domain.ErrUpstreamUnavailable):
			writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "search failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeQueryError maps query pipeline errors to HTTP status codes
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoContext):
		writeError(w, http.StatusUnprocessableEntity, "no relevant context found for query")
	case errors.Is(err, domain.ErrUpstreamTimeout):
		writeError(w, http.StatusServiceUnavailable, "model service timed out")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "query failed")
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
