package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/renpay/renpay-backend/pkg/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "dev"

	rec := doJSON(t, HealthLive(cfg), http.MethodGet, "/health/live", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Renpay-Env") != "dev" {
		t.Fatal("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}

	rec := doJSON(t, HealthReady(cfg, &fakePinger{}, nil), http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, HealthReady(cfg, &fakePinger{err: errors.New("connection refused")}, nil), http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when db is down, got %d", rec.Code)
	}
}
