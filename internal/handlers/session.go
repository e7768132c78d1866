package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/web/pages"
)

const sessionCookie = "qrart_session"

// maxSessions bounds the in-memory state; the oldest entry is dropped first.
const maxSessions = 256

// session is the per-browser state of the New AI QR page.
type session struct {
	form     pages.QRForm
	qr       []byte
	settings artbatch.Settings
}

type sessions struct {
	mu    sync.Mutex
	m     map[string]*session
	order []string
}

func newSessions() *sessions {
	return &sessions{m: make(map[string]*session)}
}

// put stores sess under id, evicting the oldest sessions past the cap.
// Callers hold mu.
func (s *sessions) put(id string, sess session) {
	if _, ok := s.m[id]; !ok {
		s.order = append(s.order, id)
	}
	s.m[id] = &sess
	for len(s.order) > maxSessions {
		delete(s.m, s.order[0])
		s.order = s.order[1:]
	}
}

// session returns a copy of the session for the request, creating it and
// setting the cookie when missing.
func (h *Handler) session(c *gin.Context) (string, session) {
	s := h.sessions
	id, err := c.Cookie(sessionCookie)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		if sess, ok := s.m[id]; ok {
			return id, *sess
		}
	}
	id = uuid.NewString()
	sess := session{
		form:     pages.QRFormFrom(nil),
		settings: artbatch.DefaultSettings(),
	}
	s.put(id, sess)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	return id, sess
}

func (h *Handler) saveSession(id string, sess session) {
	s := h.sessions
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(id, sess)
}
