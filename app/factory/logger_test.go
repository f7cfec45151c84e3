package factory

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func TestNewModuleLoggerTagsModule(t *testing.T) {
	logger := NewModuleLogger("booking-coordinator")
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("expected *logrus.Entry, got %T", logger)
	}
	if entry.Data["module"] != "booking-coordinator" {
		t.Fatalf("unexpected module field: %v", entry.Data["module"])
	}
}

func TestLoggerWithContextAddsRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/payment-intents", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-abc-1")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	logger := LoggerWithContext(NewModuleLogger("payments-controller"), ctx)
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("expected *logrus.Entry, got %T", logger)
	}
	if entry.Data["request_id"] != "req-abc-1" {
		t.Fatalf("unexpected request_id field: %v", entry.Data["request_id"])
	}
}

func TestLoggerWithContextFallsBackToResponseHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/payment-intents", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Response().Header().Set(echo.HeaderXRequestID, "req-generated-2")

	logger := LoggerWithContext(NewModuleLogger("payments-controller"), ctx)
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("expected *logrus.Entry, got %T", logger)
	}
	if entry.Data["request_id"] != "req-generated-2" {
		t.Fatalf("unexpected request_id field: %v", entry.Data["request_id"])
	}
}

func TestLoggerWithContextWithoutRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	base := NewModuleLogger("payments-controller")
	logger := LoggerWithContext(base, ctx)
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("expected *logrus.Entry, got %T", logger)
	}
	if _, has := entry.Data["request_id"]; has {
		t.Fatal("request_id must be absent when the request carries none")
	}
}
