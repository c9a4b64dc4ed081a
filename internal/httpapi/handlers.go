package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"asamanthinks/internal/domain"
	"asamanthinks/internal/observability"
	"asamanthinks/internal/session"
	"asamanthinks/internal/usecase"
)

type checkInRequest struct {
	Text string `json:"text"`
}

type toggleResponse struct {
	Recording bool                   `json:"recording"`
	Result    *session.CheckInResult `json:"result,omitempty"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	log := observability.LoggerFromContext(r.Context(), s.log)

	var req checkInRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, log, usecase.NewError(usecase.ErrorInvalidInput, "invalid_json", err))
		return
	}

	res, err := s.session.CheckIn(r.Context(), req.Text)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelectState(w http.ResponseWriter, r *http.Request) {
	log := observability.LoggerFromContext(r.Context(), s.log)

	c, err := domain.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, log, usecase.NewError(usecase.ErrorInvalidInput, "unknown_category", err))
		return
	}

	res, err := s.session.SelectState(r.Context(), c)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.History())
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, observability.LoggerFromContext(r.Context(), s.log),
				usecase.NewError(usecase.ErrorInvalidInput, "invalid_limit", err))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.session.Journal(limit))
}

func (s *Server) handleGetMusic(w http.ResponseWriter, _ *http.Request) {
	track := s.session.MusicTrack()
	if track == nil {
		writeNotFound(w, "no_music_track")
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) handleRegenerateMusic(w http.ResponseWriter, r *http.Request) {
	track, err := s.session.RegenerateMusic(r.Context())
	if err != nil {
		writeError(w, observability.LoggerFromContext(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// handleToggleRecording starts a recording, or stops it and runs the voice
// pipeline on what was captured.
func (s *Server) handleToggleRecording(w http.ResponseWriter, r *http.Request) {
	log := observability.LoggerFromContext(r.Context(), s.log)

	recording, audio, err := s.recorder.Toggle(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	if recording {
		writeJSON(w, http.StatusOK, toggleResponse{Recording: true})
		return
	}

	res, err := s.session.ProcessVoice(r.Context(), audio)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Recording: false, Result: &res})
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	log := observability.LoggerFromContext(r.Context(), s.log)

	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, log, usecase.NewError(usecase.ErrorInvalidInput, "chunk_too_large", err))
			return
		}
		writeError(w, log, usecase.NewError(usecase.ErrorInvalidInput, "read_chunk", err))
		return
	}
	if err := s.chunks.Push(chunk); err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"bytes": len(chunk)})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Logs())
}

func (s *Server) handleObjects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"handles": s.session.Handles()})
}

func (s *Server) handleReleaseObjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.ReleaseObjects(r.Context()))
}

func (s *Server) handleInsights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Insights())
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Categories())
}
