package multiview

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"stream-multiview/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// HelpText lists the keyboard shortcuts shown by the help button.
const HelpText = "Shortcuts:\n\nEnter (in input): Add video\n\nP: Play/Pause all\nM: Mute/Unmute all"

// Handler exposes the layout manager over HTTP using go-chi.
type Handler struct {
	mgr     *Manager
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Manager, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(mgr *Manager, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{mgr: mgr, log: log, metrics: m}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/layout", h.GetLayout)
	r.Get("/help", h.GetHelp)
	r.Route("/streams", func(r chi.Router) {
		r.Post("/", h.AddStream)
		r.Delete("/", h.ClearStreams)
		r.Route("/{stream_id}", func(r chi.Router) {
			r.Delete("/", h.RemoveStream)
			r.Post("/move", h.MoveStream)
			r.Post("/side", h.MoveStreamToSide)
			r.Post("/play", h.PlayStream)
			r.Post("/pause", h.PauseStream)
			r.Post("/mute", h.ToggleStreamMute)
		})
	})
	r.Route("/controls", func(r chi.Router) {
		r.Post("/play", h.PlayAll)
		r.Post("/pause", h.PauseAll)
		r.Post("/toggle", h.TogglePlayAll)
		r.Post("/mute", h.MuteAll)
	})
	r.Put("/volume", h.SetVolume)
	r.Put("/preset", h.ApplyPreset)
	r.Post("/shortcuts/{key}", h.Shortcut)
	r.Route("/drag", func(r chi.Router) {
		r.Post("/start", h.DragStart)
		r.Post("/over", h.DragOver)
		r.Post("/column", h.DragOverColumn)
		r.Post("/drop", h.Drop)
		r.Post("/end", h.DragEnd)
	})
}

type addStreamRequest struct {
	Input string `json:"input"`
	Side  string `json:"side,omitempty"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

type sideRequest struct {
	Side string `json:"side"`
}

type volumeRequest struct {
	Volume *int `json:"volume"`
}

type presetRequest struct {
	Preset string `json:"preset"`
}

type muteRequest struct {
	Muted *bool `json:"muted,omitempty"`
}

type dragStartRequest struct {
	ID StreamID `json:"id"`
}

type dragOverRequest struct {
	Target StreamID `json:"target"`
	Pointer
}

type dragColumnResponse struct {
	Moved bool `json:"moved"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetLayout handles GET /layout.
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, http.StatusOK)
}

// GetHelp handles GET /help.
func (h *Handler) GetHelp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": HelpText})
}

// AddStream handles POST /streams.
// Body: { "input": "https://youtu.be/dQw4w9WgXcQ", "side": "left" }; side is optional.
func (h *Handler) AddStream(w http.ResponseWriter, r *http.Request) {
	var req addStreamRequest
	if !h.decode(w, r, &req) {
		return
	}
	var side Side
	if req.Side != "" {
		s, ok := ParseSide(req.Side)
		if !ok {
			writeError(w, http.StatusBadRequest, "side must be left or right")
			return
		}
		side = s
	}

	id, added, err := h.mgr.AddFromInput(req.Input, side)
	switch {
	case errors.Is(err, ErrUnrecognizedInput):
		h.log.Debug("unrecognized stream input", slog.String("input", req.Input))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case IsCapacity(err):
		h.rejectCapacity(w, err, id)
		return
	case err != nil:
		h.log.Error("add stream failed", slog.String("stream_id", string(id)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "add stream failed")
		return
	}

	if !added {
		h.writeView(w, http.StatusOK)
		return
	}
	h.log.Info("stream added", slog.String("stream_id", string(id)))
	if h.metrics != nil {
		h.metrics.IncStreamsAdded()
	}
	h.writeView(w, http.StatusCreated)
}

// ClearStreams handles DELETE /streams.
func (h *Handler) ClearStreams(w http.ResponseWriter, r *http.Request) {
	n := h.mgr.Clear()
	h.log.Info("streams cleared", slog.Int("count", n))
	if h.metrics != nil {
		h.metrics.AddStreamsRemoved(n)
	}
	h.writeView(w, http.StatusOK)
}

// RemoveStream handles DELETE /streams/{stream_id}. Unknown ids are not an error.
func (h *Handler) RemoveStream(w http.ResponseWriter, r *http.Request) {
	id, ok := streamParam(w, r)
	if !ok {
		return
	}
	if h.mgr.Remove(id) {
		h.log.Info("stream removed", slog.String("stream_id", string(id)))
		if h.metrics != nil {
			h.metrics.AddStreamsRemoved(1)
		}
	}
	h.writeView(w, http.StatusOK)
}

// MoveStream handles POST /streams/{stream_id}/move.
// Body: { "direction": "earlier" } or { "direction": "later" }.
func (h *Handler) MoveStream(w http.ResponseWriter, r *http.Request) {
	id, ok := streamParam(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !h.decode(w, r, &req) {
		return
	}
	switch req.Direction {
	case "earlier", "up":
		h.mgr.MoveEarlier(id)
	case "later", "down":
		h.mgr.MoveLater(id)
	default:
		writeError(w, http.StatusBadRequest, "direction must be earlier or later")
		return
	}
	h.writeView(w, http.StatusOK)
}

// MoveStreamToSide handles POST /streams/{stream_id}/side.
// Body: { "side": "right" }.
func (h *Handler) MoveStreamToSide(w http.ResponseWriter, r *http.Request) {
	id, ok := streamParam(w, r)
	if !ok {
		return
	}
	var req sideRequest
	if !h.decode(w, r, &req) {
		return
	}
	side, ok := ParseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be left or right")
		return
	}
	if err := h.mgr.MoveToSide(id, side); err != nil {
		h.rejectCapacity(w, err, id)
		return
	}
	h.writeView(w, http.StatusOK)
}

// PlayStream handles POST /streams/{stream_id}/play.
func (h *Handler) PlayStream(w http.ResponseWriter, r *http.Request) {
	if id, ok := streamParam(w, r); ok {
		h.mgr.Play(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// PauseStream handles POST /streams/{stream_id}/pause.
func (h *Handler) PauseStream(w http.ResponseWriter, r *http.Request) {
	if id, ok := streamParam(w, r); ok {
		h.mgr.Pause(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleStreamMute handles POST /streams/{stream_id}/mute.
func (h *Handler) ToggleStreamMute(w http.ResponseWriter, r *http.Request) {
	if id, ok := streamParam(w, r); ok {
		h.mgr.ToggleMute(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// PlayAll handles POST /controls/play.
func (h *Handler) PlayAll(w http.ResponseWriter, r *http.Request) {
	h.mgr.PlayAll()
	w.WriteHeader(http.StatusNoContent)
}

// PauseAll handles POST /controls/pause.
func (h *Handler) PauseAll(w http.ResponseWriter, r *http.Request) {
	h.mgr.PauseAll()
	w.WriteHeader(http.StatusNoContent)
}

// TogglePlayAll handles POST /controls/toggle.
func (h *Handler) TogglePlayAll(w http.ResponseWriter, r *http.Request) {
	playing := h.mgr.TogglePlayAll()
	writeJSON(w, http.StatusOK, map[string]bool{"playing": playing})
}

// MuteAll handles POST /controls/mute. An empty body toggles the global flag;
// { "muted": true } forces it.
func (h *Handler) MuteAll(w http.ResponseWriter, r *http.Request) {
	var req muteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug("invalid request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Muted != nil {
		h.mgr.SetMutedAll(*req.Muted)
	} else {
		h.mgr.ToggleMuteAll()
	}
	h.writeView(w, http.StatusOK)
}

// SetVolume handles PUT /volume. Body: { "volume": 40 }.
func (h *Handler) SetVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Volume == nil {
		writeError(w, http.StatusBadRequest, "volume is required")
		return
	}
	h.mgr.SetAllVolume(*req.Volume)
	h.writeView(w, http.StatusOK)
}

// ApplyPreset handles PUT /preset. Body: { "preset": "3-3" } or { "preset": "auto" }.
func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.mgr.ApplyPreset(req.Preset); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeView(w, http.StatusOK)
}

// Shortcut handles POST /shortcuts/{key}: "p" toggles playback, "m" toggles mute.
func (h *Handler) Shortcut(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(chi.URLParam(r, "key")) {
	case "p":
		h.mgr.TogglePlayAll()
	case "m":
		h.mgr.ToggleMuteAll()
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeView(w, http.StatusOK)
}

// DragStart handles POST /drag/start. Body: { "id": "..." }.
func (h *Handler) DragStart(w http.ResponseWriter, r *http.Request) {
	var req dragStartRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.mgr.DragStart(req.ID) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DragOver handles POST /drag/over.
// Body: { "target": "...", "y": 120, "top": 100, "height": 200 }.
func (h *Handler) DragOver(w http.ResponseWriter, r *http.Request) {
	var req dragOverRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mgr.DragOverTile(req.Target, req.Pointer)
	w.WriteHeader(http.StatusNoContent)
}

// DragOverColumn handles POST /drag/column. Body: { "side": "left" }.
// The page sends this on every dragover, so a full column is not an error:
// the reply is { "moved": false } and the tile stays where it was.
func (h *Handler) DragOverColumn(w http.ResponseWriter, r *http.Request) {
	var req sideRequest
	if !h.decode(w, r, &req) {
		return
	}
	side, ok := ParseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be left or right")
		return
	}
	moved, err := h.mgr.DragOverColumn(side)
	if err != nil {
		h.log.Debug("drag rejected", slog.String("side", string(side)), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, dragColumnResponse{Moved: moved})
}

// Drop handles POST /drag/drop.
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	h.mgr.Drop()
	w.WriteHeader(http.StatusNoContent)
}

// DragEnd handles POST /drag/end.
func (h *Handler) DragEnd(w http.ResponseWriter, r *http.Request) {
	h.mgr.DragEnd()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rejectCapacity(w http.ResponseWriter, err error, id StreamID) {
	if !IsCapacity(err) {
		h.log.Error("layout change failed", slog.String("stream_id", string(id)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "layout change failed")
		return
	}
	h.log.Info("capacity rejected",
		slog.String("stream_id", string(id)),
		slog.String("error", err.Error()))
	if h.metrics != nil {
		h.metrics.IncCapacityRejections()
	}
	writeError(w, http.StatusConflict, err.Error())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("invalid request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) writeView(w http.ResponseWriter, status int) {
	writeJSON(w, status, h.mgr.View())
}

func streamParam(w http.ResponseWriter, r *http.Request) (StreamID, bool) {
	id := chi.URLParam(r, "stream_id")
	if !ValidStreamID(id) {
		w.WriteHeader(http.StatusBadRequest)
		return "", false
	}
	return StreamID(id), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
