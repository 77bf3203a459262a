package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
)

const (
	sessionName     = "stravainsights_session"
	keySessionToken = "session_token"
	keyOAuthState   = "oauth_state"

	// SessionCookieTTL outlives SessionTokenTTL, so an expired token still
	// reaches the server and can be renewed
	SessionCookieTTL = 30 * 24 * time.Hour
)

// SessionStore keeps the session token and the oauth state in a signed and
// encrypted browser cookie
type SessionStore struct {
	store sessions.Store
}

func NewSessionStore(secret string, secure bool) *SessionStore {
	hashKey := sha256.Sum256([]byte("hash|" + secret))
	blockKey := sha256.Sum256([]byte("block|" + secret))

	store := sessions.NewCookieStore(hashKey[:], blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	// also sets the max age of the securecookie codecs
	store.MaxAge(int(SessionCookieTTL.Seconds()))

	return &SessionStore{store: store}
}

func (s *SessionStore) session(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		// tampered or stale cookie, a fresh session is still returned
		log.Debugf("session store, get session: %s", err)
	}
	return session
}

func (s *SessionStore) getString(r *http.Request, key string) string {
	val, _ := s.session(r).Values[key].(string)
	return val
}

func (s *SessionStore) setValues(w http.ResponseWriter, r *http.Request, values map[string]string) error {
	session := s.session(r)
	for k, v := range values {
		if v == "" {
			delete(session.Values, k)
			continue
		}
		session.Values[k] = v
	}
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) SessionToken(r *http.Request) string {
	return s.getString(r, keySessionToken)
}

func (s *SessionStore) SetSessionToken(w http.ResponseWriter, r *http.Request, token string) error {
	return s.setValues(w, r, map[string]string{keySessionToken: token})
}

func (s *SessionStore) OAuthState(r *http.Request) string {
	return s.getString(r, keyOAuthState)
}

func (s *SessionStore) SetOAuthState(w http.ResponseWriter, r *http.Request, state string) error {
	return s.setValues(w, r, map[string]string{keyOAuthState: state})
}

// Clear removes everything kept in the session cookie
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	return s.setValues(w, r, map[string]string{
		keySessionToken: "",
		keyOAuthState:   "",
	})
}
