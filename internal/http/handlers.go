package http

import (
	"net/http"

	"casa/internal/core"
	mwauth "casa/internal/middleware/auth"
)

type houseRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	UserID string    `json:"userId"`
	Role   core.Role `json:"role,omitempty"`
}

func (s *Server) handleCreateHouse(w http.ResponseWriter, r *http.Request) {
	var req houseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.Houses.CreateHouse(r.Context(), mwauth.UserID(r.Context()), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.svc.Houses.ListHouses(r.Context(), mwauth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if houses == nil {
		houses = []core.House{}
	}
	writeJSON(w, http.StatusOK, houses)
}

func (s *Server) handleGetHouse(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.Houses.GetHouse(r.Context(), mwauth.UserID(r.Context()), houseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleRenameHouse(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req houseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.Houses.RenameHouse(r.Context(), mwauth.UserID(r.Context()), houseID, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		writeError(w, r, badRequest("userId is required"))
		return
	}
	m, err := s.svc.Houses.AddMember(r.Context(), mwauth.UserID(r.Context()), houseID, req.UserID, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	memberID, err := pathID(r, "memberId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Houses.RemoveMember(r.Context(), mwauth.UserID(r.Context()), houseID, memberID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ns, err := s.svc.Notifications.List(r.Context(), mwauth.UserID(r.Context()), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ns == nil {
		ns = []core.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.svc.Notifications.MarkRead(r.Context(), mwauth.UserID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
