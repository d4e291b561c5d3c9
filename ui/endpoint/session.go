// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/z5labs/drivethru/concurrent"
	"github.com/z5labs/drivethru/ui/page"

	"github.com/google/uuid"
)

// SessionCookie names the cookie holding a browser's session id.
const SessionCookie = "drivethru_session"

// ErrNoSession is returned by [ControllerFrom] outside of [Sessions.Middleware].
var ErrNoSession = errors.New("no session in request context")

// Sessions gives every browser its own [page.Controller].
type Sessions struct {
	controllers   *concurrent.Cache[uuid.UUID, *page.Controller]
	newController func() *page.Controller
	secure        bool
}

// SessionsOption configures [Sessions].
type SessionsOption func(*Sessions)

// SecureCookie marks the session cookie Secure.
func SecureCookie(b bool) SessionsOption {
	return func(s *Sessions) {
		s.secure = b
	}
}

// NewSessions forgets a session once it has been idle for longer than idle.
func NewSessions(idle time.Duration, newController func() *page.Controller, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		controllers:   concurrent.NewCache[uuid.UUID, *page.Controller](idle),
		newController: newController,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sessionCtxKey struct{}

// session is resolved lazily so requests which never touch page state,
// such as health probes, do not create one.
type session struct {
	sessions *Sessions
	w        http.ResponseWriter
	r        *http.Request

	once sync.Once
	c    *page.Controller
	err  error
}

func (s *session) controller() (*page.Controller, error) {
	s.once.Do(func() {
		id, ok := s.id()
		if !ok {
			id = uuid.New()
			http.SetCookie(s.w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id.String(),
				Path:     "/",
				HttpOnly: true,
				Secure:   s.sessions.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		s.c, s.err = s.sessions.controllers.GetOr(id, func() (*page.Controller, error) {
			return s.sessions.newController(), nil
		})
	})
	return s.c, s.err
}

func (s *session) id() (uuid.UUID, bool) {
	cookie, err := s.r.Cookie(SessionCookie)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Middleware makes the caller's controller available to [ControllerFrom].
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := &session{sessions: s, w: w, r: r}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ControllerFrom returns the controller of the request's session, starting
// a new session if the request has none. It must be called before the
// response is written.
func ControllerFrom(ctx context.Context) (*page.Controller, error) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*session)
	if !ok {
		return nil, ErrNoSession
	}
	return sess.controller()
}
