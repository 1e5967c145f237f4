package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	rep, err := s.deps.Reports.Expenses(r.Context(), rng)
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRevenueReport(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	rep, err := s.deps.Reports.Revenue(r.Context(), rng)
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleClientReport(w http.ResponseWriter, r *http.Request) {
	rng, limit, err := ParseClientReport(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	rep, err := s.deps.Reports.Clients(r.Context(), rng, limit)
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleInvoiceStatusReport(w http.ResponseWriter, r *http.Request) {
	rng, includeCancelled, err := ParseStatusReport(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	rep, err := s.deps.Reports.InvoiceStatus(r.Context(), rng, includeCancelled)
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	rep, err := s.deps.Reports.Profit(r.Context(), rng)
	if err != nil {
		writeError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
