package http

import (
	"bytes"
	"net/http"

	"invoicer/internal/core"
	"invoicer/internal/export"
	"invoicer/internal/log"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	f, err := ParseClientFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	clients, err := s.deps.Clients.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Clients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var c core.Client
	if err := DecodeJSON(w, r, &c); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c.ID = ""
	saved, err := s.deps.Clients.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	logWrite(r, log.ComponentClient, saved.ID, 0)
	NewResponse().Status(http.StatusCreated).Header("Location", "/api/clients/"+saved.ID).JSON(saved).Write(w)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var c core.Client
	if err := DecodeJSON(w, r, &c); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c.ID = r.PathValue("id")
	saved, err := s.deps.Clients.Update(r.Context(), c)
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if !Confirmed(r) {
		PreconditionRequiredError().Write(w)
		return
	}
	if err := s.deps.Clients.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportClients(w http.ResponseWriter, r *http.Request) {
	f, err := ParseClientFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	clients, err := s.deps.Clients.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "client")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteClients(&buf, clients); err != nil {
		writeError(w, r, err, "client")
		return
	}
	NewResponse().Attachment(export.CSVFilename("clients", s.now()), "text/csv; charset=utf-8", buf.Bytes()).Write(w)
}
