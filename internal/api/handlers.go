package api

import (
	"encoding/json"
	"net/http"

	"github.com/marcus/spn/internal/expense"
	"github.com/marcus/spn/internal/models"
)

// createRequest mirrors the create command: nullable fields are pointers,
// amount is minor currency units.
type createRequest struct {
	Description *string `json:"description"`
	Amount      int64   `json:"amount"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
}

// updateRequest carries only the fields to change; absent fields keep
// their stored values.
type updateRequest struct {
	Description *string `json:"description"`
	Amount      *int64  `json:"amount"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	e, err := s.svc.Create(expense.CreateParams{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		logFor(r.Context()).Error("create expense", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "create failed")
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.ListActive()
	if err != nil {
		logFor(r.Context()).Error("list expenses", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "list failed")
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	e, err := s.svc.FindActive(id)
	if err != nil {
		logFor(r.Context()).Error("find expense", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "find failed")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "expense not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	e, err := s.svc.Update(id, expense.UpdateParams{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		logFor(r.Context()).Error("update expense", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "update failed")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "expense not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ok, err := s.svc.Delete(id)
	if err != nil {
		logFor(r.Context()).Error("delete expense", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "delete failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "expense not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeSyncNotConfigured, "no sync file configured")
		return
	}

	res, err := s.engine.FullSync(r.Context())
	if err != nil {
		logFor(r.Context()).Error("full sync", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"downloaded": res.Downloaded,
		"applied":    res.Applied,
		"pushed":     res.Pushed,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
