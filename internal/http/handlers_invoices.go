package http

import (
	"bytes"
	"net/http"

	"invoicer/internal/core"
	"invoicer/internal/export"
	"invoicer/internal/log"
	"invoicer/internal/services"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	f, err := ParseInvoiceFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	invoices, err := s.deps.Invoices.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.deps.Invoices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.deps.Invoices.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	logWrite(r, log.ComponentInvoice, saved.ID, saved.Amount.Cents)
	NewResponse().Status(http.StatusCreated).Header("Location", "/api/invoices/"+saved.ID).JSON(saved).Write(w)
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.deps.Invoices.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type statusRequest struct {
	Status core.InvoiceStatus `json:"status"`
}

func (s *Server) handleSetInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.deps.Invoices.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if !Confirmed(r) {
		PreconditionRequiredError().Write(w)
		return
	}
	if err := s.deps.Invoices.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	inv, err := s.deps.Invoices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	settings, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err, "settings")
		return
	}
	data, err := export.InvoicePDF(inv, settings)
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	s.deps.Logger.InfoContext(r.Context(), "Invoice PDF rendered", "invoice_id", inv.ID, "bytes", len(data))
	NewResponse().Attachment(export.PDFFilename(inv.ID), "application/pdf", data).Write(w)
}

func (s *Server) handleExportInvoices(w http.ResponseWriter, r *http.Request) {
	f, err := ParseInvoiceFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	invoices, err := s.deps.Invoices.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteInvoices(&buf, invoices); err != nil {
		writeError(w, r, err, "invoice")
		return
	}
	NewResponse().Attachment(export.CSVFilename("invoices", s.now()), "text/csv; charset=utf-8", buf.Bytes()).Write(w)
}
