// Package api is the HTTP control surface of the soundboard.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glizzus/soundboard/internal/playback"
	"github.com/glizzus/soundboard/internal/repository"
	"github.com/glizzus/soundboard/internal/voice"
)

const requestTimeout = 30 * time.Second

// Player is the playback control surface the API drives.
type Player interface {
	Play(ctx context.Context, cmd playback.PlayCommand) error
	PlayNow(ctx context.Context, cmd playback.PlayCommand) error
	Stop(ctx context.Context, guildID string) error
	Skip(ctx context.Context, guildID string) error
	Shuffle(ctx context.Context, guildID string) error
	Disconnect(ctx context.Context, guildID string) error
	SetVolume(ctx context.Context, guildID string, volume float64) error
	SetRepeating(ctx context.Context, guildID string, repeating bool) error
	Status(ctx context.Context, guildID string) (playback.Status, error)
}

var _ Player = (*playback.Manager)(nil)

type ChannelLocator interface {
	UserChannel(guildID, userID string) (string, bool)
}

type Library interface {
	List() []repository.Sound
}

// API exposes the playback manager over HTTP.
type API struct {
	player  Player
	locator ChannelLocator
	library Library
	token   string
	logger  *slog.Logger
}

// New creates the API. An empty token disables authentication.
func New(player Player, locator ChannelLocator, library Library, token string, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		player:  player,
		locator: locator,
		library: library,
		token:   token,
		logger:  logger,
	}
}

// Routes builds the router. /healthz and /metrics are never authenticated.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(a.requireToken)

		r.Get("/sounds", a.handleSoundsList)
		r.Route("/guilds/{guildID}", func(r chi.Router) {
			r.Get("/status", a.handleStatus)
			r.Post("/play", a.handlePlay)
			r.Post("/stop", a.guildAction("stop", a.player.Stop))
			r.Post("/skip", a.guildAction("skip", a.player.Skip))
			r.Post("/shuffle", a.guildAction("shuffle", a.player.Shuffle))
			r.Post("/disconnect", a.guildAction("disconnect", a.player.Disconnect))
			r.Put("/volume", a.handleVolume)
			r.Put("/repeat", a.handleRepeat)
		})
	})

	return r
}

// Server wraps the routes in an http.Server with the usual deadlines.
func (a *API) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (a *API) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// playbackError maps playback failures to a status and an error code.
func (a *API) playbackError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, playback.ErrSoundNotFound):
		writeError(w, http.StatusNotFound, "sound_not_found")
	case errors.Is(err, playback.ErrNoChannel):
		writeError(w, http.StatusConflict, "no_voice_channel")
	case errors.Is(err, playback.ErrNotConnected):
		writeError(w, http.StatusConflict, "not_connected")
	case errors.Is(err, playback.ErrActorClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down")
	case errors.Is(err, voice.ErrConnectTimeout):
		writeError(w, http.StatusGatewayTimeout, "connect_timeout")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout")
	default:
		a.logger.Error("playback request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
