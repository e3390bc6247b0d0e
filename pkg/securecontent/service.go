// Copyright 2024-2026 Aiku AI

package securecontent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/aiku/securecontent/pkg/securecontent/postfmt"
)

// maxRequestBodySize is the maximum allowed request body for the API (4 MB).
const maxRequestBodySize = 4 << 20

// Service exposes decoration over HTTP. It owns the process-wide reply cache.
type Service struct {
	Config    Config
	Log       zerolog.Logger
	Decorator *Decorator
	Cache     *ReplyCache

	registry *prometheus.Registry
}

// NewService wires the catalog, cache, oracle and decorator for cfg. fetcher
// overrides the backend selected by cfg when not nil.
func NewService(cfg Config, fetcher ThreadFetcher, log zerolog.Logger) (*Service, error) {
	catalog, err := LoadCatalog(cfg.Strings)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = cfg.NewFetcher()
	}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	cache := NewReplyCache()
	oracle := NewOracle(cache, fetcher, metrics, log)
	oracle.FetchTimeout = cfg.Timeout()
	return &Service{
		Config:    cfg,
		Log:       log,
		Decorator: NewDecorator(oracle, catalog, metrics, log),
		Cache:     cache,
		registry:  registry,
	}, nil
}

// Router returns the HTTP API.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Post("/decorate", s.HandleDecorate)
		r.Post("/participation", s.HandleMarkReplied)
		r.Get("/toolbar", s.HandleToolbar)
	})
	return r
}

// Start serves the HTTP API until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.Config.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.Log.Info().Str("addr", s.Config.ListenAddr).Str("backend", s.Config.Backend).Msg("Starting secure content API")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("secure content API: %w", err)
	}
	return nil
}

// DecorateRequest is the body of POST /api/decorate.
type DecorateRequest struct {
	// HTML is a cooked post body. Ignored when Document is set.
	HTML string `json:"html,omitempty"`
	// Raw is composer markdown, cooked before decoration when HTML is empty.
	Raw string `json:"raw,omitempty"`
	// Document is a full page; every cooked post in it is decorated.
	Document   string  `json:"document,omitempty"`
	ThreadID   string  `json:"thread_id,omitempty"`
	ThreadPage bool    `json:"thread_page,omitempty"`
	Locale     string  `json:"locale,omitempty"`
	Viewer     *Viewer `json:"viewer,omitempty"`
	// Markdown asks for a markdown rendition of the decorated output.
	Markdown bool `json:"markdown,omitempty"`
}

// UnmarshalJSON accepts a numeric thread_id.
func (r *DecorateRequest) UnmarshalJSON(data []byte) error {
	type rawRequest DecorateRequest
	raw := struct {
		*rawRequest
		ThreadID json.RawMessage `json:"thread_id"`
	}{rawRequest: (*rawRequest)(r)}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ThreadID)
	if err != nil {
		return fmt.Errorf("thread_id: %w", err)
	}
	r.ThreadID = id
	return nil
}

// DecorateResponse is the reply of POST /api/decorate.
type DecorateResponse struct {
	HTML         string          `json:"html"`
	Excerpt      string          `json:"excerpt,omitempty"`
	Markdown     string          `json:"markdown,omitempty"`
	Regions      []RegionOutcome `json:"regions"`
	ReplyTrigger *TriggerAction  `json:"reply_trigger,omitempty"`
}

// HandleDecorate is the HTTP handler for POST /api/decorate.
func (s *Service) HandleDecorate(w http.ResponseWriter, r *http.Request) {
	var req DecorateRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	resp, err := s.Decorate(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, resp)
}

// Decorate runs one API decoration request.
func (s *Service) Decorate(ctx context.Context, req *DecorateRequest) (*DecorateResponse, error) {
	locale := req.Locale
	if locale == "" {
		locale = s.Config.DefaultLocale
	}

	var (
		page  *Page
		posts []*html.Node
		err   error
	)
	switch {
	case req.Document != "":
		page, err = ParsePage(strings.NewReader(req.Document))
		if err != nil {
			return nil, err
		}
		posts = page.Posts()
	default:
		postHTML := req.HTML
		if postHTML == "" && req.Raw != "" {
			if postHTML, err = postfmt.Cook(req.Raw); err != nil {
				return nil, err
			}
		}
		var post *html.Node
		page, post, err = NewPostPage(postHTML, false)
		if err != nil {
			return nil, err
		}
		posts = []*html.Node{post}
	}
	page.Viewer = req.Viewer
	page.Locale = locale
	page.ThreadPageClass = s.Config.ThreadPageClass
	if req.ThreadPage && !page.IsThreadPage() {
		if body := QuerySelector(page.Doc, "body"); body != nil {
			addClass(body, page.ThreadPageClass)
		}
	}

	resp := &DecorateResponse{Regions: []RegionOutcome{}}
	helper := ThreadIDHelper(req.ThreadID)
	for _, post := range posts {
		report := s.Decorator.Decorate(ctx, page, post, helper)
		resp.Regions = append(resp.Regions, report.Regions...)
	}

	if req.Document != "" {
		resp.HTML, err = page.Render()
	} else {
		resp.HTML, err = InnerHTML(posts[0])
	}
	if err != nil {
		return nil, err
	}
	resp.Excerpt = postfmt.Truncate(postfmt.Excerpt(resp.HTML), s.Config.ExcerptLength)
	if req.Markdown {
		if resp.Markdown, err = postfmt.Markdown(resp.HTML); err != nil {
			return nil, err
		}
	}
	if QuerySelector(page.Doc, "["+actionAttr+"="+actionReply+"]") != nil {
		action := ResolveReplyTrigger(page, s.Config.ReplySelectors)
		resp.ReplyTrigger = &action
	}
	return resp, nil
}

// MarkRepliedRequest is the body of POST /api/participation.
type MarkRepliedRequest struct {
	ViewerID string `json:"viewer_id"`
	ThreadID string `json:"thread_id"`
}

// UnmarshalJSON accepts numeric ids.
func (r *MarkRepliedRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		ViewerID json.RawMessage `json:"viewer_id"`
		ThreadID json.RawMessage `json:"thread_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if r.ViewerID, err = decodeID(raw.ViewerID); err != nil {
		return fmt.Errorf("viewer_id: %w", err)
	}
	if r.ThreadID, err = decodeID(raw.ThreadID); err != nil {
		return fmt.Errorf("thread_id: %w", err)
	}
	return nil
}

// HandleMarkReplied records that a viewer has just posted in a thread, so
// later passes unlock reply-only content without another remote check.
func (s *Service) HandleMarkReplied(w http.ResponseWriter, r *http.Request) {
	var req MarkRepliedRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if req.ViewerID == "" || req.ThreadID == "" {
		http.Error(w, "viewer_id and thread_id are required", http.StatusBadRequest)
		return
	}
	s.Cache.MarkReplied(req.ViewerID, req.ThreadID)
	s.Log.Info().
		Str("viewer_id", req.ViewerID).
		Str("thread_id", req.ThreadID).
		Msg("Recorded participation")
	s.writeJSON(w, map[string]int{"cached": s.Cache.Len()})
}

// toolbarButtonJSON is the wire form of a toolbar button.
type toolbarButtonJSON struct {
	ID    string `json:"id"`
	Group string `json:"group"`
	Icon  string `json:"icon"`
	Title string `json:"title"`
}

// HandleToolbar lists the composer buttons with their titles translated.
func (s *Service) HandleToolbar(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.Config.DefaultLocale
	}
	strs := s.Decorator.catalog.For(locale)
	var buttons []toolbarButtonJSON
	for _, b := range ToolbarButtons() {
		buttons = append(buttons, toolbarButtonJSON{ID: b.ID, Group: b.Group, Icon: b.Icon, Title: strs.Lookup(b.Title)})
	}
	s.writeJSON(w, buttons)
}

func (s *Service) readJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	if err := json.Unmarshal(body, into); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Service) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warn().Err(err).Msg("Failed to write response")
	}
}
