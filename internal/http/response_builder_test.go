package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"invoicer/internal/core"
	"invoicer/internal/log"
	"invoicer/internal/notify"
	"invoicer/internal/storage"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/clients/c1").
		JSON(map[string]string{"id": "c1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if loc := w.Header().Get("Location"); loc != "/api/clients/c1" {
		t.Errorf("Location = %q", loc)
	}
	if w.Body.String() != `{"id":"c1"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().Attachment("Invoice_INV-0001.pdf", "application/pdf", []byte("%PDF")).Write(w)

	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="Invoice_INV-0001.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if cl := w.Header().Get("Content-Length"); cl != "4" {
		t.Errorf("Content-Length = %q", cl)
	}
}

func TestResponseBuilder_UnencodableBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"ch": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorFor(t *testing.T) {
	var verr core.ValidationError
	verr.Add("email", "invalid email address")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", fmt.Errorf("create client: %w", verr.Err()), http.StatusUnprocessableEntity, "validation failed"},
		{"store not found", fmt.Errorf("get client: %w", storage.ErrNotFound), http.StatusNotFound, "client not found"},
		{"feed not found", notify.ErrNotFound, http.StatusNotFound, "client not found"},
		{"conflict", fmt.Errorf("delete client: %w", storage.ErrConflict), http.StatusConflict, "client is still referenced by other records"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			errorFor(context.Background(), tt.err, "client", log.OpRead).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
			if tt.wantStatus == http.StatusUnprocessableEntity && body.Fields["email"] == "" {
				t.Errorf("fields = %v, want email", body.Fields)
			}
		})
	}
}
