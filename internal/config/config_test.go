package config

import (
	"testing"
	"time"
)

func TestLoad_CaptureDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Capture.EmbeddingDim != 128 {
		t.Errorf("expected default embedding dim 128, got %d", cfg.Capture.EmbeddingDim)
	}
	if cfg.Capture.MatchThreshold != 0.55 {
		t.Errorf("expected default match threshold 0.55, got %f", cfg.Capture.MatchThreshold)
	}
	if cfg.Capture.MinConfidence != 0.5 {
		t.Errorf("expected min confidence 0.5, got %f", cfg.Capture.MinConfidence)
	}
	if cfg.Capture.MinQuality != 0.6 {
		t.Errorf("expected min quality 0.6, got %f", cfg.Capture.MinQuality)
	}
	if cfg.Capture.CountdownTicks != 3 {
		t.Errorf("expected 3 countdown ticks, got %d", cfg.Capture.CountdownTicks)
	}
	if cfg.Capture.DetectionInterval() != 300*time.Millisecond {
		t.Errorf("expected detection interval 300ms, got %v", cfg.Capture.DetectionInterval())
	}
	if cfg.Capture.CountdownTick() != 800*time.Millisecond {
		t.Errorf("expected countdown tick 800ms, got %v", cfg.Capture.CountdownTick())
	}
	if cfg.Capture.GuideRadiusPercent != 0.25 || cfg.Capture.GuideTolerance != 0.9 {
		t.Errorf("unexpected guide circle defaults: %f / %f", cfg.Capture.GuideRadiusPercent, cfg.Capture.GuideTolerance)
	}
}

func TestLoad_PasswordDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Password.MinLength != 8 {
		t.Errorf("expected min length 8, got %d", cfg.Password.MinLength)
	}
	if cfg.Password.WeakMax != 40 || cfg.Password.MediumMax != 70 {
		t.Errorf("unexpected strength cutoffs %d / %d", cfg.Password.WeakMax, cfg.Password.MediumMax)
	}
	if cfg.Password.SpecialChars != `!@#$%^&*(),.?":{}|<>` {
		t.Errorf("unexpected special chars %q", cfg.Password.SpecialChars)
	}
}

func TestLoad_CustomMatchThreshold(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "0.42")

	cfg := Load()

	if cfg.Capture.MatchThreshold != 0.42 {
		t.Errorf("expected threshold 0.42, got %f", cfg.Capture.MatchThreshold)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "-1")
	t.Setenv("FACE_EMBEDDING_DIM", "invalid")
	t.Setenv("FACE_DETECTION_INTERVAL_MS", "0")
	t.Setenv("ASSERTION_TTL", "forever")

	cfg := Load()

	if cfg.Capture.MatchThreshold != 0.55 {
		t.Errorf("expected default threshold for negative input, got %f", cfg.Capture.MatchThreshold)
	}
	if cfg.Capture.EmbeddingDim != 128 {
		t.Errorf("expected default dim for invalid input, got %d", cfg.Capture.EmbeddingDim)
	}
	if cfg.Capture.DetectionIntervalMS != 300 {
		t.Errorf("expected default interval for zero input, got %d", cfg.Capture.DetectionIntervalMS)
	}
	if cfg.Auth.AssertionTTL != 15*time.Minute {
		t.Errorf("expected default assertion TTL, got %v", cfg.Auth.AssertionTTL)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:8001")
	t.Setenv("GATEWAY_URL", "  ")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ASSERTION_TTL", "1h")

	cfg := Load()

	if cfg.Backend.URL != "http://backend:8001" {
		t.Errorf("unexpected backend URL %q", cfg.Backend.URL)
	}
	if cfg.Gateway.URL != "http://localhost:8080" {
		t.Errorf("blank gateway URL should fall back to default, got %q", cfg.Gateway.URL)
	}
	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("expected 7 open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected 5 idle conns, got %d", cfg.Database.MaxIdleConns)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.Log.Level)
	}
	if cfg.Auth.AssertionTTL != time.Hour {
		t.Errorf("expected 1h assertion TTL, got %v", cfg.Auth.AssertionTTL)
	}
}
