package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glizzus/soundboard/internal/playback"
)

// PlayRequest is the body of POST /guilds/{guildID}/play.
type PlayRequest struct {
	SoundID string `json:"soundId"`
	// ChannelID wins over UserID. With neither, the sound plays in the
	// channel the guild is already connected to.
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Random    bool   `json:"random"`
	Repeat    int    `json:"repeat"`
	// Now interrupts the current sound instead of queueing.
	Now       bool   `json:"now"`
	Submitter string `json:"submitter"`
}

type VolumeRequest struct {
	// Percent is between 0 and 100.
	Percent *int `json:"percent"`
}

type RepeatRequest struct {
	Enabled *bool `json:"enabled"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (a *API) handleSoundsList(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sounds": []any{}})
		return
	}

	type sound struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Category    string `json:"category,omitempty"`
		TimesPlayed int    `json:"timesPlayed"`
	}
	sounds := a.library.List()
	out := make([]sound, 0, len(sounds))
	for _, s := range sounds {
		out = append(out, sound{ID: s.ID, DisplayName: s.DisplayName, Category: s.Category, TimesPlayed: s.TimesPlayed})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sounds": out})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.player.Status(r.Context(), chi.URLParam(r, "guildID"))
	if err != nil {
		a.playbackError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.SoundID = strings.TrimSpace(req.SoundID)
	if req.SoundID == "" && !req.Random {
		writeError(w, http.StatusBadRequest, "sound_required")
		return
	}
	if req.Repeat < playback.Forever {
		writeError(w, http.StatusBadRequest, "invalid_repeat")
		return
	}

	guildID := chi.URLParam(r, "guildID")
	channelID := req.ChannelID
	if channelID == "" && req.UserID != "" && a.locator != nil {
		var ok bool
		if channelID, ok = a.locator.UserChannel(guildID, req.UserID); !ok {
			writeError(w, http.StatusConflict, "user_not_in_voice")
			return
		}
	}
	submitter := req.Submitter
	if submitter == "" {
		submitter = "api"
	}

	cmd := playback.PlayCommand{
		GuildID:     guildID,
		ChannelID:   channelID,
		SoundID:     req.SoundID,
		Random:      req.Random,
		RepeatCount: req.Repeat,
		Submitter:   submitter,
	}
	play := a.player.Play
	if req.Now {
		play = a.player.PlayNow
	}
	if err := play(r.Context(), cmd); err != nil {
		a.playbackError(w, r, err)
		return
	}

	a.logger.Info("queued sound from api", "guildID", guildID, "channelID", channelID, "soundID", req.SoundID, "now", req.Now)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (a *API) guildAction(name string, fn func(ctx context.Context, guildID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := chi.URLParam(r, "guildID")
		if err := fn(r.Context(), guildID); err != nil {
			a.playbackError(w, r, err)
			return
		}
		a.logger.Debug("applied guild action", "guildID", guildID, "action", name)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if err := decode(w, r, &req); err != nil || req.Percent == nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if *req.Percent < 0 || *req.Percent > 100 {
		writeError(w, http.StatusBadRequest, "invalid_volume")
		return
	}
	if err := a.player.SetVolume(r.Context(), chi.URLParam(r, "guildID"), float64(*req.Percent)/100); err != nil {
		a.playbackError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req RepeatRequest
	if err := decode(w, r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := a.player.SetRepeating(r.Context(), chi.URLParam(r, "guildID"), *req.Enabled); err != nil {
		a.playbackError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
