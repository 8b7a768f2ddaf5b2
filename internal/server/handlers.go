package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"turns":     s.log.Len(),
		"observers": s.broadcaster.Observers(),
	})
}

// handleSubmitInput accepts human input and hands it to the dispatcher in the
// background. Backend failures surface as error turns on the event stream, so
// a well-formed submission is always accepted.
func (s *Server) handleSubmitInput(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		return
	}
	var req SubmitInputRequest
	if err := validateAndDecode(inputSchema, raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed input: %v", err))
		return
	}

	go func() {
		if err := s.dispatcher.SubmitHumanInput(s.baseCtx, req.Content); err != nil {
			s.logger.Printf("dispatch rejected input: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	WriteSSE(w, r, s.broadcaster)
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"turns": s.log.All()})
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PhaseStatus{
		Phase:       string(s.machine.Current()),
		Requirement: s.machine.Requirement(),
		Summaries:   s.summaries.Count(),
		Turns:       s.log.Len(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.client.ListModels(r.Context())
	resp := ModelsResponse{Models: models, Selected: s.models.Selected()}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		return
	}
	var req SelectModelRequest
	if err := validateAndDecode(selectModelSchema, raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed input: %v", err))
		return
	}
	s.models.Select(req.Model)
	s.logger.Printf("model selected: %s", req.Model)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "selected": req.Model})
}

// handleSaveArtifact persists a generated artifact and records a file_saved
// turn on the stream.
func (s *Server) handleSaveArtifact(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotImplemented, "archive is not configured")
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		return
	}
	var req SaveArtifactRequest
	if err := validateAndDecode(saveArtifactSchema, raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed input: %v", err))
		return
	}

	art, err := s.archive.SaveArtifact(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.recordFileSaved(art.Path, art.Checksum, art.Size)
	writeJSON(w, http.StatusCreated, art)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return nil, err
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
