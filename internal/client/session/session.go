package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrNotAuthenticated = errors.New("login required")

const (
	keyToken = "token"
	keyUser  = "user"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	Token string
	User  User
}

// Store persists the session as a flat string map under the keys token and
// user, the user being a JSON document.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is $HOME/.taskdeck/session.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskdeck", "session.json")
	}
	return filepath.Join(home, ".taskdeck", "session.json")
}

func (s *Store) read() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	kv := map[string]string{}
	if len(b) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(b, &kv); err != nil {
		return nil, fmt.Errorf("session file %s: %w", s.path, err)
	}
	return kv, nil
}

func (s *Store) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(map[string]string{
		keyToken: sess.Token,
		keyUser:  string(userJSON),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Load returns whatever is stored. A missing file is an empty session.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, err := s.read()
	if err != nil {
		return Session{}, err
	}

	sess := Session{Token: kv[keyToken]}
	if raw := kv[keyUser]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &sess.User); err != nil {
			return Session{}, fmt.Errorf("stored user: %w", err)
		}
	}
	return sess, nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Require only checks that a token is present. Expiry is discovered by the
// API answering 401.
func (s *Store) Require() (Session, error) {
	sess, err := s.Load()
	if err != nil {
		return Session{}, err
	}
	if sess.Token == "" {
		return Session{}, ErrNotAuthenticated
	}
	return sess, nil
}

// FromRedirect reads the frontend redirect produced by the OAuth callback:
// /auth?token=...&user=... on success or /auth?error=... on failure.
func FromRedirect(raw string) (Session, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Session{}, fmt.Errorf("parse redirect: %w", err)
	}

	q := u.Query()
	if msg := q.Get("error"); msg != "" {
		return Session{}, fmt.Errorf("github login failed: %s", msg)
	}

	sess := Session{Token: q.Get("token")}
	if sess.Token == "" {
		return Session{}, errors.New("redirect carries no token")
	}

	if raw := q.Get("user"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sess.User); err != nil {
			return Session{}, fmt.Errorf("redirect user: %w", err)
		}
	}
	return sess, nil
}

const githubAuthorizeURL = "https://github.com/login/oauth/authorize"

// AuthorizeURL is the consent page a browser opens to start GitHub login.
func AuthorizeURL(clientID, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("scope", "read:user user:email")
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}
	return githubAuthorizeURL + "?" + q.Encode()
}
