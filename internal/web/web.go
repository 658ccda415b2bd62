package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"festsched/internal/config"
	"festsched/internal/export"
	"festsched/internal/festival"
	appLog "festsched/internal/log"
	"festsched/internal/model"
	"festsched/internal/schedule"
)

// Server exposes the schedule board, the loaded festival and the calendar
// feed over HTTP.
type Server struct {
	cfg       *config.Config
	store     *festival.Store
	refresher *schedule.Refresher
	router    chi.Router
	now       func() time.Time
}

// embeddedStatic contains the board page.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store *festival.Store, refresher *schedule.Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		refresher: refresher,
		router:    chi.NewRouter(),
		now:       time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="festsched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs an HTTP server on cfg.Listen until ctx is canceled, then shuts
// it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		if s.cfg != nil && s.cfg.RateLimitPerMinute > 0 {
			api.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
		}
		api.Get("/schedule", s.handleSchedule)
		api.Get("/schedule.ics", s.handleCalendar)
		api.Get("/shows", s.handleShows)
		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})

	// Everything else is the embedded board page.
	r.Handle("/*", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded board page from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}
	return http.FileServer(http.FS(sub))
}

// handleSchedule returns the board.
//
// GET /api/schedule?at=<epoch seconds>&favorites=1
//   - at:        compute a fresh board for this instant instead of serving
//     the last refreshed one
//   - favorites: only shows flagged isFavorite
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	favorites := parseBool(q.Get("favorites"))

	rawAt := q.Get("at")
	if rawAt == "" && !favorites {
		writeJSON(w, http.StatusOK, s.refresher.Current())
		return
	}

	now := s.now()
	if rawAt != "" {
		at, err := parseInstant(rawAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at parameter")
			return
		}
		now = at.Time()
	}

	opts := s.refresher.Options()
	opts.FavoritesOnly = favorites
	board := schedule.BuildBoard(now, s.store.Shows(), opts)
	board.Generation = s.refresher.Current().Generation

	appLog.Debug("api schedule request", "at", rawAt, "favorites", favorites)
	writeJSON(w, http.StatusOK, board)
}

// showsResponse is the JSON response shape for /api/shows.
type showsResponse struct {
	Days  []int     `json:"days"`
	Year  int       `json:"year"`
	Shows []showDTO `json:"shows"`
}

// showDTO is a JSON-friendly view of a show record.
type showDTO struct {
	ID          int             `json:"id"`
	ShowName    string          `json:"show_name"`
	StageName   string          `json:"stage_name"`
	Description string          `json:"description"`
	Times       []model.Instant `json:"times"`
	Favorite    bool            `json:"favorite"`
	OneNight    bool            `json:"one_night"`
}

func (s *Server) handleShows(w http.ResponseWriter, _ *http.Request) {
	fest := s.store.Current()
	resp := showsResponse{
		Days:  fest.Days,
		Year:  fest.Year,
		Shows: make([]showDTO, 0, len(fest.Shows)),
	}
	for _, rec := range fest.Shows {
		resp.Shows = append(resp.Shows, showDTO{
			ID:          rec.ID,
			ShowName:    rec.Name,
			StageName:   rec.Stage,
			Description: rec.Description,
			Times:       rec.Times,
			Favorite:    rec.Favorite,
			OneNight:    rec.OneNight,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	length := export.DefaultShowLength
	if s.cfg != nil && s.cfg.ShowLengthMinutes > 0 {
		length = time.Duration(s.cfg.ShowLengthMinutes) * time.Minute
	}

	now := s.now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err := parseInstant(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at parameter")
			return
		}
		now = at.Time()
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="festival.ics"`)
	err := export.WriteCalendar(w, now, s.store.Shows(), export.CalendarOptions{
		Name:       "Festival Schedule",
		ShowLength: length,
		Policy:     s.refresher.Options().Policy,
	})
	if err != nil {
		appLog.Error("failed to write calendar", err)
	}
}

func parseInstant(raw string) (model.Instant, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("instant is not finite")
	}
	return model.Instant(f), nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
