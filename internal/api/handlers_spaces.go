package api

import (
	"net/http"
	"strconv"

	"coworkd/internal/booking"
	"coworkd/internal/models"
	"coworkd/internal/service"

	"github.com/go-chi/chi/v5"
)

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Msg: "invalid id"}
	}
	return id, nil
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.spaces.List(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

func (s *Server) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	space, err := s.spaces.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, space)
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var space models.CoworkingSpace
	if err := decodeBody(r, &space); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.spaces.Create(r.Context(), &space); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, space)
}

func (s *Server) handleUpdateSpace(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var space models.CoworkingSpace
	if err := decodeBody(r, &space); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	space.ID = id

	if err := s.spaces.Update(r.Context(), &space); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, space)
}

// handleDeleteSpace cascade-deletes the space's reservations too. Audit
// entries stay behind.
func (s *Server) handleDeleteSpace(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.spaces.Delete(r.Context(), id); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.audit.ListAuditEntries(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReservationAudit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	entries, err := s.audit.ListAuditEntriesByReservation(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if len(entries) == 0 {
		writeError(w, r, s.logger, booking.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
