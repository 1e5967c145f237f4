package http

import (
	"net/http"

	"invoicer/internal/core"
	"invoicer/internal/notify"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err, "settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.Settings
	if err := DecodeJSON(w, r, &settings); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.deps.Settings.Save(r.Context(), settings)
	if err != nil {
		writeError(w, r, err, "settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Settings.Balance(r.Context())
	if err != nil {
		writeError(w, r, err, "balance")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRecomputeBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Settings.RecomputeBalance(r.Context())
	if err != nil {
		writeError(w, r, err, "balance")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Search.Search(r.Context(), sanitizeInput(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, r, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type notificationList struct {
	Items  []notify.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feed == nil {
		writeJSON(w, http.StatusOK, notificationList{Items: []notify.Notification{}})
		return
	}
	writeJSON(w, http.StatusOK, notificationList{Items: s.deps.Feed.List(), Unread: s.deps.Feed.Unread()})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feed == nil {
		NotFoundError("notification").Write(w)
		return
	}
	if err := s.deps.Feed.MarkRead(r.PathValue("id")); err != nil {
		writeError(w, r, err, "notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": s.deps.Feed.Unread()})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feed == nil {
		writeJSON(w, http.StatusOK, map[string]int{"marked": 0, "unread": 0})
		return
	}
	n := s.deps.Feed.MarkAllRead()
	writeJSON(w, http.StatusOK, map[string]int{"marked": n, "unread": s.deps.Feed.Unread()})
}
