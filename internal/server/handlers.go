package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/matzehuels/flowmap/pkg/buildinfo"
	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/errors"
	"github.com/matzehuels/flowmap/pkg/highlight"
	"github.com/matzehuels/flowmap/pkg/interact"
	"github.com/matzehuels/flowmap/pkg/pipeline"
	"github.com/matzehuels/flowmap/pkg/render"
)

// =============================================================================
// Responses
// =============================================================================

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string         `json:"status"`
	Build          buildinfo.Info `json:"build"`
	CatalogVersion string         `json:"catalog_version"`
	CatalogLoaded  time.Time      `json:"catalog_loaded"`
	Sessions       int            `json:"sessions"`
}

// CatalogResponse is returned by GET /api/catalog.
type CatalogResponse struct {
	Version string           `json:"version"`
	catalog.Document
	Issues []catalog.Issue `json:"issues"`
}

// GestureResponse is returned by the gesture, selection and reset endpoints.
// Changed is false when the request was a no-op.
type GestureResponse struct {
	Changed bool         `json:"changed"`
	Scene   render.Scene `json:"scene"`
}

type idRequest struct {
	ID string `json:"id"`
}

type dragRequest struct {
	ID string  `json:"id"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type connectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(code), ErrorResponse{Code: code, Message: errors.UserMessage(err)})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func requireID(kind, id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "%s id is required", kind)
	}
	return nil
}

// =============================================================================
// Shared state
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Build:          buildinfo.Get(),
		CatalogVersion: snap.catalog.Version(),
		CatalogLoaded:  snap.loaded,
		Sessions:       s.store.Len(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.current.Load().catalog
	issues := cat.Issues()
	if issues == nil {
		issues = []catalog.Issue{}
	}
	writeJSON(w, http.StatusOK, CatalogResponse{
		Version:  cat.Version(),
		Document: cat.Document(),
		Issues:   issues,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.current.Load().layout)
}

// =============================================================================
// Session state
// =============================================================================

// mutate runs fn on the request's session and answers with the resulting
// scene. fn reports whether it changed anything.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(c *interact.Controller) (bool, error)) {
	var resp GestureResponse
	err := sessionFrom(r.Context()).Do(func(c *interact.Controller) error {
		changed, err := fn(c)
		if err != nil {
			return err
		}
		resp = GestureResponse{Changed: changed, Scene: render.BuildScene(c)}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) scene(r *http.Request) render.Scene {
	var scene render.Scene
	_ = sessionFrom(r.Context()).Do(func(c *interact.Controller) error {
		scene = render.BuildScene(c)
		return nil
	})
	return scene
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scene(r))
}

func (s *Server) handleSceneArtifact(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := s.cfg.Options
		opts.Formats = []string{format}
		opts.Detailed = r.URL.Query().Get("detailed") == "true"

		artifacts, err := s.runner.Render(r.Context(), s.scene(r), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(artifacts[format])
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var sel highlight.Selection
	if err := decode(r, &sel); err != nil {
		writeError(w, err)
		return
	}
	if err := pipeline.ValidateSelection(sel); err != nil {
		writeError(w, err)
		return
	}
	var resp GestureResponse
	_ = sessionFrom(r.Context()).Do(func(c *interact.Controller) error {
		switch {
		case sel.IsNone():
			c.ClearSelection()
			resp = GestureResponse{Changed: true, Scene: render.BuildScene(c)}
		case c.Select(sel):
			resp = GestureResponse{Changed: true, Scene: render.BuildScene(c)}
		default:
			resp = GestureResponse{Scene: pipeline.UnmatchedScene(c, sel)}
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		changed := !c.Selection().IsNone()
		c.ClearSelection()
		return changed, nil
	})
}

func (s *Server) handleResetLayout(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		c.ResetLayout()
		return true, nil
	})
}

// =============================================================================
// Gestures
// =============================================================================

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireID("service", req.ID); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		return render.NewDispatcher(c).OnNodeDrag(req.ID, req.DX, req.DY), nil
	})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		return render.NewDispatcher(c).OnNodeRelease(req.ID), nil
	})
}

func (s *Server) handleNodeClick(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireID("service", req.ID); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		return render.NewDispatcher(c).OnNodeClick(req.ID), nil
	})
}

func (s *Server) handleEdgeClick(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireID("feed", req.ID); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		return render.NewDispatcher(c).OnEdgeClick(req.ID), nil
	})
}

func (s *Server) handlePaneClick(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		return render.NewDispatcher(c).OnPaneClick(), nil
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(c *interact.Controller) (bool, error) {
		return render.NewDispatcher(c).OnConnectRequest(req.Source, req.Target), nil
	})
}
