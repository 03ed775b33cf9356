package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/graph"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("ask request",
		zap.String("request_id", requestIDFrom(r)),
		zap.String("question", req.Question))

	answer, err := s.responder.Answer(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{Question: req.Question, Answer: answer})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	values, err := s.retriever.RetrieveMetadata(r.Context(), field)
	if err != nil {
		if errors.Is(err, graph.ErrBackendUnavailable) {
			s.respondError(w, http.StatusServiceUnavailable, "graph store unavailable")
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"field":  field,
		"values": values,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunkCount, err := s.store.ChunkCount(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	edgeCount, err := s.store.EdgeCount(ctx)
	if err != nil {
		s.logger.Error("status: count edges failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"chunks": chunkCount,
		"edges":  edgeCount,
		"config": map[string]interface{}{
			"chunk_size":                s.config.Index.ChunkSize,
			"chunk_overlap":             s.config.Index.ChunkOverlap,
			"edge_similarity_threshold": s.config.Index.EdgeSimilarityThreshold,
			"edge_top_k":                s.config.Index.EdgeTopK,
			"top_k":                     s.config.Retrieval.TopK,
			"embedding_dimensions":      s.config.Embedding.Dimensions,
			"vector_index_type":         s.config.Storage.VectorIndexType,
			"database_path":             s.config.Storage.DatabasePath,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type reindexRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	dirs := s.config.Watch.Directories
	if req.Path != "" {
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid path")
			return
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				s.respondError(w, http.StatusNotFound, "directory not found")
				return
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !info.IsDir() {
			s.respondError(w, http.StatusBadRequest, "path is not a directory")
			return
		}
		dirs = []string{abs}
	}
	if len(dirs) == 0 {
		s.respondError(w, http.StatusBadRequest, "no directories to index")
		return
	}

	total := 0
	for _, dir := range dirs {
		n, err := s.pipeline.IngestDir(r.Context(), dir, s.config.Watch.Extensions)
		total += n
		if err != nil {
			s.logger.Error("reindex failed", zap.String("dir", dir), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "indexed",
		"documents": total,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
