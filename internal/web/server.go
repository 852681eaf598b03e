// Package web serves the checklist to browsers. Each browser gets its own
// session, identified by a signed cookie, and its own save slot.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"ai-grocery-checklist/internal/app"
	"ai-grocery-checklist/internal/shopping"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/page.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

const (
	maxFormBytes    = 64 << 10
	sessionIdleTime = 24 * time.Hour
)

// Server is the browser front end.
type Server struct {
	app    *app.App
	tokens *sessionTokens
	logger *zap.Logger
}

// NewServer creates a Server. An empty secret makes sessions last only as
// long as the process.
func NewServer(a *app.App, secret []byte) (*Server, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		a.Logger.Warn("SESSION_SECRET not set; browser sessions will not survive a restart")
	}
	return &Server{
		app:    a,
		tokens: &sessionTokens{secret: secret, now: time.Now},
		logger: a.Logger.Named("web"),
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.app.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.tokens.middleware)

		r.Get("/", s.handleIndex)
		r.Get("/api/list", s.handleListJSON)

		r.Post("/generate", s.handleGenerate)
		r.Post("/import", s.handleImport)
		r.Post("/save", s.handleSave)
		r.Post("/load", s.handleLoad)
		r.Post("/clear", s.handleClear)
		r.Post("/clear-saved", s.handleClearSaved)

		r.Post("/categories/{id}/rename", s.handleRename)
		r.Route("/items/{id}", func(r chi.Router) {
			r.Post("/edit", s.handleEditItem)
			r.Post("/delete", s.handleDeleteItem)
			r.Post("/toggle", s.handleToggleItem)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Idle sessions are dropped periodically; their saved lists are kept.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.app.Sessions.Prune(sessionIdleTime)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type pageData struct {
	View     app.View
	HasSaved bool
	Error    string
	Notice   string
}

func (s *Server) session(r *http.Request) *app.Session {
	return s.app.Sessions.Get(sessionID(r.Context()))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, errMsg, notice string) {
	sess := s.session(r)
	data := pageData{
		View:     sess.Snapshot(),
		HasSaved: sess.HasSaved(r.Context()),
		Error:    errMsg,
		Notice:   notice,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
	}
}

func backToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "", "")
}

func (s *Server) handleListJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(r).List())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// A closed tab must not abort a request the session is already waiting on.
	if err := s.session(r).Generate(context.WithoutCancel(r.Context()), r.PostForm.Get("input")); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, app.ErrBlankInput):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, app.ErrGenerationInProgress):
			status = http.StatusConflict
		}
		s.render(w, r, status, app.Message(err), "")
		return
	}
	backToIndex(w, r)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	notes, err := s.app.ClipInput(r.Context(), s.session(r), r.PostForm.Get("url"))
	if err != nil {
		s.render(w, r, http.StatusBadGateway, "Could not import that page: "+err.Error(), "")
		return
	}
	notice := "Imported the page text."
	if notes.Title != "" {
		notice = "Imported " + notes.Title + "."
	}
	s.render(w, r, http.StatusOK, "", notice)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	saved, err := s.session(r).Save(r.Context())
	if err != nil {
		s.render(w, r, http.StatusInternalServerError, app.Message(err), "")
		return
	}
	if saved {
		s.render(w, r, http.StatusOK, "", "List saved.")
		return
	}
	backToIndex(w, r)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Load(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shopping.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.render(w, r, status, app.Message(err), "")
		return
	}
	backToIndex(w, r)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session(r).Clear()
	backToIndex(w, r)
}

func (s *Server) handleClearSaved(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).ClearSaved(r.Context()); err != nil {
		s.render(w, r, http.StatusInternalServerError, app.Message(err), "")
		return
	}
	backToIndex(w, r)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.session(r).RenameCategory(chi.URLParam(r, "id"), r.PostForm.Get("label"))
	backToIndex(w, r)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.session(r).EditItem(chi.URLParam(r, "id"), r.PostForm.Get("text"))
	backToIndex(w, r)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.session(r).DeleteItem(chi.URLParam(r, "id"))
	backToIndex(w, r)
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r).ToggleItem(chi.URLParam(r, "id")); !ok {
		http.NotFound(w, r)
		return
	}
	backToIndex(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
