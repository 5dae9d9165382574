package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123.apps.googleusercontent.com")
}

func TestLoad_Success(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Errorf("expected Mongo.URI to be set, got: %s", cfg.Mongo.URI)
	}
	if cfg.Port != "5000" {
		t.Errorf("expected default Port to be '5000', got: %s", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected default Environment to be 'development', got: %s", cfg.Environment)
	}
	if cfg.SessionTTLHours != 720 {
		t.Errorf("expected default SessionTTLHours 720, got: %d", cfg.SessionTTLHours)
	}
	if cfg.IsProduction() {
		t.Error("development config must not report production")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing variables, got nil")
	}

	for _, key := range []string{"MONGO_URI", "JWT_SECRET", "GOOGLE_CLIENT_ID"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error message should mention %s, got: %v", key, err)
		}
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "qa")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "invalid ENV") {
		t.Fatalf("expected invalid ENV error, got: %v", err)
	}
}

func TestLoad_InvalidMongoURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		expectError string
	}{
		{"postgres scheme", "postgres://localhost:5432/db", "mongodb://"},
		{"no scheme", "localhost:27017", "mongodb://"},
		{"missing host", "mongodb://", "must include a host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("MONGO_URI", tt.uri)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("expected error containing %q, got: %v", tt.expectError, err)
			}
		})
	}
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
}

func TestLoad_OptionalSections(t *testing.T) {
	setRequired(t)
	t.Setenv("EMAIL_USER", "team@example.com")
	t.Setenv("EMAIL_APP_PASSWORD", "abcd efgh ijkl mnop")
	t.Setenv("CASS_DB", "cass1, cass2")
	t.Setenv("CLIENT_URL", "https://app.example.com")
	t.Setenv("CORS_ORIGINS", "https://app.example.com,http://localhost:3000")
	t.Setenv("REALTIME_ENFORCE_MEMBERSHIP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Email.Password != "abcdefghijklmnop" {
		t.Errorf("expected spaces stripped from app password, got %q", cfg.Email.Password)
	}
	if !cfg.Email.Enabled() {
		t.Error("expected email to be enabled")
	}
	if !cfg.Cassandra.Enabled() || len(cfg.Cassandra.Hosts) != 2 || cfg.Cassandra.Hosts[1] != "cass2" {
		t.Errorf("unexpected cassandra hosts: %v", cfg.Cassandra.Hosts)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected de-duplicated origins, got %v", cfg.CORSOrigins)
	}
	if !cfg.EnforceRealtimeMembership {
		t.Error("expected realtime membership enforcement to be on")
	}
}
