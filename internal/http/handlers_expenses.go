package http

import (
	"bytes"
	"net/http"

	"invoicer/internal/core"
	"invoicer/internal/export"
	"invoicer/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	expenses, err := s.deps.Expenses.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	e := core.NewExpense()
	if err := DecodeJSON(w, r, &e); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e.ID = ""
	saved, err := s.deps.Expenses.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	logWrite(r, log.ComponentExpense, saved.ID, saved.Amount.Cents)
	NewResponse().Status(http.StatusCreated).Header("Location", "/api/expenses/"+saved.ID).JSON(saved).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	e := core.NewExpense()
	if err := DecodeJSON(w, r, &e); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e.ID = r.PathValue("id")
	saved, err := s.deps.Expenses.Update(r.Context(), e)
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !Confirmed(r) {
		PreconditionRequiredError().Write(w)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	expenses, err := s.deps.Expenses.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "expense")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteExpenses(&buf, expenses); err != nil {
		writeError(w, r, err, "expense")
		return
	}
	NewResponse().Attachment(export.CSVFilename("expenses", s.now()), "text/csv; charset=utf-8", buf.Bytes()).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Settings.Categories(r.Context())
	if err != nil {
		writeError(w, r, err, "category")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.ExpenseCategory
	if err := DecodeJSON(w, r, &c); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c.ID = ""
	saved, err := s.deps.Settings.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err, "category")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !Confirmed(r) {
		PreconditionRequiredError().Write(w)
		return
	}
	if err := s.deps.Settings.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
