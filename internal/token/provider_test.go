package token

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/curstat/internal/cursorapi"
)

// makeJWT builds an unsigned JWT carrying the given sub claim.
func makeJWT(t *testing.T, sub string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"` + sub + `"}`))
	return header + "." + payload + ".sig"
}

// writeStateDB creates a temp state database with one access token entry.
func writeStateDB(t *testing.T, jwt string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.vscdb")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("CREATE TABLE ItemTable (key TEXT PRIMARY KEY, value TEXT)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO ItemTable (key, value) VALUES (?, ?)", accessTokenKey, jwt); err != nil {
		t.Fatalf("inserting token: %v", err)
	}
	return path
}

func TestUserIDFromJWT(t *testing.T) {
	tests := []struct {
		name    string
		sub     string
		want    string
		wantErr bool
	}{
		{"provider-prefixed", "auth0|user_01HXYZ", "user_01HXYZ", false},
		{"bare subject", "user_42", "user_42", false},
		{"empty sub", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UserIDFromJWT(makeJWT(t, tt.sub))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("UserIDFromJWT = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserIDFromJWT_NotAJWT(t *testing.T) {
	if _, err := UserIDFromJWT("not-a-token"); err == nil {
		t.Fatal("expected error for non-JWT input")
	}
}

func TestProvider_ReadsStateDB(t *testing.T) {
	jwt := makeJWT(t, "auth0|user_01HXYZ")
	p := NewProvider(writeStateDB(t, jwt), cursorapi.SessionToken{})

	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.UserID != "user_01HXYZ" {
		t.Errorf("UserID = %q, want user_01HXYZ", tok.UserID)
	}
	if tok.Secret != jwt {
		t.Errorf("Secret = %q, want the stored token", tok.Secret)
	}
}

func TestProvider_OverrideWins(t *testing.T) {
	override := cursorapi.SessionToken{UserID: "user_x", Secret: "secret"}
	p := NewProvider(filepath.Join(t.TempDir(), "missing.vscdb"), override)

	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != override {
		t.Errorf("token = %+v, want the override", tok)
	}
}

func TestProvider_MissingStoreIsErrNoToken(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "missing.vscdb"), cursorapi.SessionToken{})

	_, err := p.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
}
