package api

import (
	"net/http"

	"confhub/internal/directory"

	"github.com/gorilla/mux"
)

func (s *Server) createSpeaker(w http.ResponseWriter, r *http.Request) {
	var req directory.SpeakerRequest
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.speakers.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Speaker created successfully", map[string]any{"speaker": sp})
}

func (s *Server) listSpeakers(w http.ResponseWriter, r *http.Request) {
	list, err := s.speakers.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Speakers fetched successfully", map[string]any{"speakers": list})
}

func (s *Server) getSpeaker(w http.ResponseWriter, r *http.Request) {
	sp, err := s.speakers.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Speaker fetched successfully", map[string]any{"speaker": sp})
}

func (s *Server) updateSpeaker(w http.ResponseWriter, r *http.Request) {
	var patch directory.SpeakerUpdate
	if _, err := decode(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	sp, err := s.speakers.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Speaker updated successfully", map[string]any{"speaker": sp})
}

func (s *Server) deleteSpeaker(w http.ResponseWriter, r *http.Request) {
	if err := s.speakers.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Speaker deleted successfully", nil)
}
