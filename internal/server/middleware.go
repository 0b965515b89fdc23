package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/observability"
	"github.com/matzehuels/flowmap/pkg/pipeline"
	"github.com/matzehuels/flowmap/pkg/session"
)

type ctxKey struct{}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxKey{}).(*session.Session)
	return sess
}

// requestLogger logs each request at debug level and reports it to the
// HTTP hooks under its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnRequest(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// withSession resolves the client's session from its cookie, creating a
// fresh one when the cookie is missing, invalid or names an expired
// session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A cookie that fails to decode yields a new, empty session.
		cookie, _ := s.cookies.Get(r, cookieName)

		var sess *session.Session
		if id, ok := cookie.Values[cookieKey].(string); ok {
			got, err := s.store.Get(r.Context(), id)
			switch {
			case err == nil:
				sess = got
			case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
				s.logger.Debug("session dropped", "id", id, "reason", err)
			default:
				writeError(w, err)
				return
			}
		}

		if sess == nil {
			created, err := s.newSession(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			cookie.Values[cookieKey] = created.ID
			if err := cookie.Save(r, w); err != nil {
				writeError(w, err)
				return
			}
			sess = created
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func (s *Server) newSession(ctx context.Context) (*session.Session, error) {
	snap := s.current.Load()
	ctrl, _ := s.runner.NewSession(snap.catalog, snap.layout, s.sessionOptions())
	sess, err := s.store.Create(ctx, ctrl)
	if err != nil {
		return nil, err
	}
	observability.HTTP().OnSessionCreated(ctx)
	s.logger.Debug("session created", "id", sess.ID, "active", s.store.Len())
	return sess, nil
}

// sessionOptions are the server options without a startup selection:
// every session begins with nothing selected.
func (s *Server) sessionOptions() pipeline.Options {
	opts := s.cfg.Options
	opts.Selection = highlight.None()
	return opts
}
