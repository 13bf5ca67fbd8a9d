package api

import (
	"net/http"

	"coworkd/internal/booking"
	"coworkd/internal/service"
)

type reservationRequest struct {
	RoomNumber int    `json:"room_number"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	spaceID, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var req reservationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if req.RoomNumber <= 0 {
		writeError(w, r, s.logger, &service.ValidationError{Msg: "please add a valid room number"})
		return
	}

	window, err := booking.ParseWindow(req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	actor := actorFromContext(r.Context())
	reservation, err := s.bookings.Create(r.Context(), actor, spaceID, req.RoomNumber, window)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	reservations, err := s.bookings.List(r.Context(), actor)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (s *Server) handleSearchReservations(w http.ResponseWriter, r *http.Request) {
	window, err := booking.ParseWindow(r.URL.Query().Get("startTime"), r.URL.Query().Get("endTime"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	reservations, err := s.bookings.SearchByTime(r.Context(), window)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	reservation, err := s.bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// handleUpdateReservation replaces the time window only; space and room are
// fixed at creation.
func (s *Server) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var req reservationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	window, err := booking.ParseWindow(req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	actor := actorFromContext(r.Context())
	reservation, err := s.bookings.Update(r.Context(), actor, id, window)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	actor := actorFromContext(r.Context())
	if err := s.bookings.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// handleExportReservations rebuilds the xlsx snapshot and streams it.
func (s *Server) handleExportReservations(w http.ResponseWriter, r *http.Request) {
	if err := s.exporter.WriteSnapshot(r.Context()); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=reservations.xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, s.exporter.SnapshotPath())
}
