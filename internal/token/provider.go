// Package token supplies the dashboard session credential. The access
// token lives in the editor's state database; the user id is recovered
// from the token's JWT payload.
package token

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/theirongolddev/curstat/internal/cursorapi"
)

const accessTokenKey = "cursorAuth/accessToken"

// ErrNoToken indicates no credential could be found anywhere.
var ErrNoToken = errors.New("token: no session token found (is the editor signed in?)")

// Provider reads and caches the session token. Refresh drops the cache and
// re-reads the store, which picks up a re-login.
type Provider struct {
	dbPath   string
	override cursorapi.SessionToken

	mu     sync.Mutex
	cached cursorapi.SessionToken
	valid  bool
}

// NewProvider returns a provider reading from dbPath. A valid override
// token short-circuits the store entirely.
func NewProvider(dbPath string, override cursorapi.SessionToken) *Provider {
	if dbPath == "" {
		dbPath = DefaultStatePath()
	}
	return &Provider{dbPath: dbPath, override: override}
}

// SetOverride installs a credential that short-circuits the store, e.g.
// one pasted during first-run setup.
func (p *Provider) SetOverride(tok cursorapi.SessionToken) {
	p.mu.Lock()
	p.override = tok
	p.mu.Unlock()
}

// Token returns the cached credential, loading it on first use.
func (p *Provider) Token(ctx context.Context) (cursorapi.SessionToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.override.Valid() {
		return p.override, nil
	}
	if p.valid {
		return p.cached, nil
	}
	return p.loadLocked(ctx)
}

// Refresh discards the cache and reloads from the store. Called at most
// once per polling cycle, after an auth failure.
func (p *Provider) Refresh(ctx context.Context) (cursorapi.SessionToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.override.Valid() {
		return p.override, nil
	}
	p.valid = false
	return p.loadLocked(ctx)
}

func (p *Provider) loadLocked(ctx context.Context) (cursorapi.SessionToken, error) {
	secret, err := readStateValue(ctx, p.dbPath, accessTokenKey)
	if err != nil {
		return cursorapi.SessionToken{}, err
	}

	userID, err := UserIDFromJWT(secret)
	if err != nil {
		return cursorapi.SessionToken{}, fmt.Errorf("token: deriving user id: %w", err)
	}

	p.cached = cursorapi.SessionToken{UserID: userID, Secret: secret}
	p.valid = true
	return p.cached, nil
}

// readStateValue reads one key from the editor's ItemTable.
func readStateValue(ctx context.Context, dbPath, key string) (string, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoToken, dbPath)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=query_only(on)")
	if err != nil {
		return "", fmt.Errorf("token: opening state db: %w", err)
	}
	defer func() { _ = db.Close() }()

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("token: reading state db: %w", err)
	}

	// Values are stored JSON-encoded; tolerate bare strings too.
	var decoded string
	if json.Unmarshal([]byte(value), &decoded) == nil && decoded != "" {
		value = decoded
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrNoToken
	}
	return value, nil
}

// ParseCookieValue turns a pasted WorkosCursorSessionToken cookie value
// into a credential. Accepts "userID%3A%3Ajwt", "userID::jwt", or a bare
// JWT; the user id always comes from the JWT itself.
func ParseCookieValue(v string) (cursorapi.SessionToken, error) {
	v = strings.TrimSpace(v)
	jwt := v
	if i := strings.Index(v, "%3A%3A"); i >= 0 {
		jwt = v[i+len("%3A%3A"):]
	} else if i := strings.Index(v, "::"); i >= 0 {
		jwt = v[i+2:]
	}

	userID, err := UserIDFromJWT(jwt)
	if err != nil {
		return cursorapi.SessionToken{}, fmt.Errorf("token: parsing cookie value: %w", err)
	}
	return cursorapi.SessionToken{UserID: userID, Secret: jwt}, nil
}

// UserIDFromJWT extracts the user id from the JWT's sub claim. Subjects
// look like "auth0|user_01"; the id is the part after the provider prefix.
func UserIDFromJWT(jwt string) (string, error) {
	parts := strings.Split(jwt, ".")
	if len(parts) != 3 {
		return "", errors.New("not a JWT")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decoding payload: %w", err)
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("parsing claims: %w", err)
	}
	if claims.Sub == "" {
		return "", errors.New("missing sub claim")
	}

	if i := strings.LastIndex(claims.Sub, "|"); i >= 0 {
		return claims.Sub[i+1:], nil
	}
	return claims.Sub, nil
}

// DefaultStatePath returns the platform path of the editor's state
// database.
func DefaultStatePath() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cursor", "User", "globalStorage", "state.vscdb")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Cursor", "User", "globalStorage", "state.vscdb")
		}
		return filepath.Join(home, "AppData", "Roaming", "Cursor", "User", "globalStorage", "state.vscdb")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "Cursor", "User", "globalStorage", "state.vscdb")
		}
		return filepath.Join(home, ".config", "Cursor", "User", "globalStorage", "state.vscdb")
	}
}
