package app

import (
	"net/url"
	"testing"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/config"
)

func TestPostgresURLEscapesCredentials(t *testing.T) {
	raw := postgresURL(config.PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		Username: "boards",
		Password: "p@ss/w:rd?",
		Database: "boards",
		SSLMode:  "require",
	})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	password, _ := u.User.Password()
	if password != "p@ss/w:rd?" || u.User.Username() != "boards" {
		t.Fatalf("credentials did not round trip: %q", raw)
	}
	if u.Host != "db.internal:5433" || u.Path != "/boards" || u.Query().Get("sslmode") != "require" {
		t.Fatalf("unexpected url %q", raw)
	}
}

func TestEnvLevel(t *testing.T) {
	tests := []struct {
		env     string
		want    zerolog.Level
		wantErr bool
	}{
		{env: config.EnvLocal, want: zerolog.TraceLevel},
		{env: config.EnvDev, want: zerolog.DebugLevel},
		{env: config.EnvProd, want: zerolog.InfoLevel},
		{env: "staging", want: zerolog.NoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			got, err := envLevel(tt.env)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("envLevel(%q) = %v, %v", tt.env, got, err)
			}
		})
	}
}
