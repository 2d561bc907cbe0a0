package server

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
)

// filesField is the multipart field carrying uploaded documents.
const filesField = "files"

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type processResponse struct {
	Message string                `json:"message"`
	Result  *models.ProcessResult `json:"result"`
}

type transcriptResponse struct {
	Entries []models.Entry `json:"entries"`
}

type chunksResponse struct {
	Batch  *models.Batch  `json:"batch"`
	Chunks []models.Chunk `json:"chunks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.respondJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": s.sessions.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete session request", zap.String("session_id", id))
	if err := s.sessions.Delete(id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleProcessDocuments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docs, closeAll, err := openUploads(r.MultipartForm.File[filesField])
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer closeAll()

	s.logger.Debug("process documents request", zap.String("session_id", sess.ID()), zap.Int("files", len(docs)))
	result, err := sess.Process(r.Context(), docs)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, processResponse{Message: result.Message(), Result: result})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	ans, err := sess.Ask(r.Context(), req.Question)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{Answer: ans})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, transcriptResponse{Entries: sess.Transcript()})
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	batch, chunks, err := sess.Chunks(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chunksResponse{Batch: batch, Chunks: chunks})
}

type statusResponse struct {
	Sessions       int                    `json:"sessions"`
	Batches        int64                  `json:"batches"`
	Chunks         int64                  `json:"chunks"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batches, err := s.storage.CountBatches(ctx)
	if err != nil {
		s.logger.Error("status: count batches failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunks, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cfg := s.config
	resp := statusResponse{
		Sessions: s.sessions.Len(),
		Batches:  batches,
		Chunks:   chunks,
		Config: map[string]interface{}{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"chunk_size":           cfg.Ingest.ChunkSize,
			"chunk_overlap":        cfg.Ingest.Overlap(),
			"top_k":                cfg.Retrieval.TopK,
			"metric":               cfg.Retrieval.Metric,
			"hybrid":               cfg.Retrieval.Hybrid,
			"llm_model":            cfg.LLM.Model,
			"database_path":        cfg.Storage.DatabasePath,
		},
	}
	if !cfg.Storage.InMemory() {
		if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(cfg.Storage.DatabasePath)...); err == nil {
			resp.DiskUsageBytes = &n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// session resolves the {id} URL parameter, writing a 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return nil, false
	}
	return sess, true
}

// openUploads turns multipart file headers into corpus documents, in upload order.
func openUploads(headers []*multipart.FileHeader) ([]extract.Document, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	docs := make([]extract.Document, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		docs = append(docs, extract.Document{Name: h.Filename, Reader: f})
	}
	return docs, closeAll, nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		parseErr  *errdefs.DocumentParseError
		configErr *errdefs.ConfigurationError
		embedErr  *errdefs.EmbeddingServiceError
		answerErr *errdefs.AnswerGenerationError
	)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errdefs.ErrNoDocuments), errors.As(err, &configErr):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrNoText), errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errdefs.ErrNotReady), errors.Is(err, errdefs.ErrIndexNotReady):
		return http.StatusConflict
	case errors.As(err, &embedErr), errors.As(err, &answerErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	msg := errdefs.UserMessage(err)
	if errors.Is(err, session.ErrSessionNotFound) {
		msg = err.Error()
	}
	s.respondError(w, status, msg)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
