package http

import (
	"net/http"

	"casa/internal/core"
	mwauth "casa/internal/middleware/auth"
)

type choreRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

type rotateRequest struct {
	HouseID string `json:"houseId"`
}

func (s *Server) handleCreateChore(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req choreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Chores.CreateChore(r.Context(), mwauth.UserID(r.Context()), core.Chore{
		HouseID:     houseID,
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
		Frequency:   core.Frequency(req.Frequency),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListChores(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	chores, err := s.svc.Chores.ListChores(r.Context(), mwauth.UserID(r.Context()), houseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if chores == nil {
		chores = []core.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// handleRotate queues a rotation job. The body is optional; without a
// houseId every house is rotated.
func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.HouseID == "" {
		req.HouseID = r.URL.Query().Get("houseId")
	}
	if err := s.svc.Chores.RequestRotation(r.Context(), mwauth.UserID(r.Context()), req.HouseID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "houseId": req.HouseID})
}
