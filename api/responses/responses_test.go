package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]any{"name": "Printer Paper"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if envelope.Data["name"] != "Printer Paper" {
		t.Fatalf("expected data envelope, got %+v", envelope.Data)
	}
}

func TestWriteError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	write := func(err error) (*httptest.ResponseRecorder, types.ErrorEnvelope) {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), logg, rec, err)
		var envelope types.ErrorEnvelope
		if decodeErr := json.Unmarshal(rec.Body.Bytes(), &envelope); decodeErr != nil {
			t.Fatalf("failed to decode body: %v", decodeErr)
		}
		return rec, envelope
	}

	t.Run("typed validation error keeps its message and details", func(t *testing.T) {
		err := pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]string{"quantity": "must be greater than 0"})
		rec, envelope := write(err)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if envelope.Error.Message != "quantity must be positive" {
			t.Fatalf("expected the typed message, got %q", envelope.Error.Message)
		}
		if envelope.Error.Details == nil {
			t.Fatal("expected details to be exposed for validation errors")
		}
	})

	t.Run("insufficient stock maps to 422", func(t *testing.T) {
		rec, envelope := write(pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 2 left"))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
			t.Fatalf("expected stock code, got %q", envelope.Error.Code)
		}
		if envelope.Error.Message != "only 2 left" {
			t.Fatalf("expected the typed message, got %q", envelope.Error.Message)
		}
	})

	t.Run("internal errors never leak their message", func(t *testing.T) {
		rec, envelope := write(pkgerrors.New(pkgerrors.CodeInternal, "pq: duplicate key violates unique constraint"))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if envelope.Error.Message != "internal server error" {
			t.Fatalf("expected the public message, got %q", envelope.Error.Message)
		}
	})

	t.Run("untyped errors become internal", func(t *testing.T) {
		rec, envelope := write(errors.New("boom"))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if envelope.Error.Code != string(pkgerrors.CodeInternal) {
			t.Fatalf("expected internal code, got %q", envelope.Error.Code)
		}
	})

	t.Run("nil error is handled", func(t *testing.T) {
		rec, _ := write(nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500 for nil error, got %d", rec.Code)
		}
	})
}
