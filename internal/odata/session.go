package odata

import (
	"net/http"
	"net/http/cookiejar"
	"sync"
)

// Session is the state one portal login holds against the SAP service:
// the cookies SAP sets and the CSRF token fetched for modifying requests.
// It is created at login and cleared at logout.
type Session struct {
	mu    sync.Mutex
	jar   http.CookieJar
	token string
}

func NewSession() *Session {
	return &Session{jar: newJar()}
}

func newJar() http.CookieJar {
	// cookiejar.New only fails on a bad public suffix list; there is none.
	jar, _ := cookiejar.New(nil)
	return jar
}

func (s *Session) cachedToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Session) cookies() http.CookieJar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar
}

// InvalidateToken forgets the CSRF token but keeps the cookies.
func (s *Session) InvalidateToken() {
	s.setToken("")
}

// Clear drops the CSRF token and all SAP cookies.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.jar = newJar()
}
