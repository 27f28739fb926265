package player

import (
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"strings"
	"sync"

	"stream-multiview/internal/multiview"

	"github.com/microcosm-cc/bluemonday"
)

const maxTitleRunes = 200

var (
	// ErrDestroyed is returned by calls on a player that has been destroyed.
	ErrDestroyed = errors.New("player destroyed")

	// ErrNotReady is returned until a page reports the player ready.
	ErrNotReady = errors.New("player not ready")
)

// Broadcaster delivers a command to every connected page.
type Broadcaster interface {
	Broadcast(v any) error
}

// Command is sent to pages.
type Command struct {
	T      string                `json:"t"`
	Op     string                `json:"op"`
	ID     multiview.StreamID    `json:"id"`
	Vars   *multiview.PlayerVars `json:"vars,omitempty"`
	Volume *int                  `json:"volume,omitempty"`
	Layout *multiview.View       `json:"layout,omitempty"`
}

// Report is received from pages.
type Report struct {
	T     string                 `json:"t"`
	ID    multiview.StreamID     `json:"id"`
	Title string                 `json:"title,omitempty"`
	Code  int                    `json:"code,omitempty"`
	State *multiview.PlayerState `json:"state,omitempty"`
	Muted *bool                  `json:"muted,omitempty"`
}

// LayoutMessage wraps a view for broadcasting to pages.
func LayoutMessage(v multiview.View) Command {
	return Command{T: "layout", Layout: &v}
}

// Factory creates Remote players and routes page reports to them.
// It implements multiview.PlayerFactory.
type Factory struct {
	out    Broadcaster
	log    *slog.Logger
	policy *bluemonday.Policy

	mu      sync.Mutex
	players map[multiview.StreamID]*Remote
}

// NewFactory returns a Factory that sends commands through out.
func NewFactory(out Broadcaster, log *slog.Logger) *Factory {
	return &Factory{
		out:     out,
		log:     log,
		policy:  bluemonday.StrictPolicy(),
		players: make(map[multiview.StreamID]*Remote),
	}
}

// NewPlayer implements multiview.PlayerFactory.
func (f *Factory) NewPlayer(vars multiview.PlayerVars, onEvent func(multiview.PlayerEvent)) (multiview.Handle, error) {
	r := &Remote{
		id:      vars.VideoID,
		vars:    vars,
		factory: f,
		onEvent: onEvent,
		state:   multiview.StateUnstarted,
	}
	f.mu.Lock()
	f.players[r.id] = r
	f.mu.Unlock()

	if err := r.send("create", nil); err != nil {
		f.log.Warn("create command not delivered", slog.String("stream_id", string(r.id)), slog.String("error", err.Error()))
	}
	return r, nil
}

// Replay returns the create commands for every live player, so a page that
// connects late can build them.
func (f *Factory) Replay() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, 0, len(f.players))
	for _, r := range f.players {
		vars := r.vars
		b, err := json.Marshal(Command{T: "player", Op: "create", ID: r.id, Vars: &vars})
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Dispatch routes a raw page message to its player. Unknown players and
// message types are ignored.
func (f *Factory) Dispatch(msg []byte) {
	var rep Report
	if err := json.Unmarshal(msg, &rep); err != nil {
		f.log.Debug("invalid page message", slog.String("error", err.Error()))
		return
	}
	if rep.T == "ka" || rep.ID == "" {
		return
	}
	f.mu.Lock()
	r, ok := f.players[rep.ID]
	f.mu.Unlock()
	if !ok {
		return
	}
	if rep.T == "ready" {
		rep.Title = f.cleanTitle(rep.Title)
	}
	r.handle(rep, f.log)
}

func (f *Factory) cleanTitle(title string) string {
	title = strings.TrimSpace(html.UnescapeString(f.policy.Sanitize(title)))
	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	return title
}

func (f *Factory) release(r *Remote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.players[r.id] == r {
		delete(f.players, r.id)
	}
}

// Remote is a Handle whose player lives in the connected pages. It caches the
// last state the pages reported.
type Remote struct {
	id      multiview.StreamID
	vars    multiview.PlayerVars
	factory *Factory
	onEvent func(multiview.PlayerEvent)

	mu        sync.Mutex
	ready     bool
	destroyed bool
	muted     bool
	state     multiview.PlayerState
}

// Play implements multiview.Handle.
func (r *Remote) Play() error {
	return r.command("play", func() {})
}

// Pause implements multiview.Handle.
func (r *Remote) Pause() error {
	return r.command("pause", func() {})
}

// Mute implements multiview.Handle.
func (r *Remote) Mute() error {
	return r.command("mute", func() { r.muted = true })
}

// UnMute implements multiview.Handle.
func (r *Remote) UnMute() error {
	return r.command("unmute", func() { r.muted = false })
}

// IsMuted implements multiview.Handle.
func (r *Remote) IsMuted() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usableLocked(); err != nil {
		return false, err
	}
	return r.muted, nil
}

// SetVolume implements multiview.Handle.
func (r *Remote) SetVolume(v int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usableLocked(); err != nil {
		return err
	}
	return r.send("volume", &v)
}

// State implements multiview.Handle.
func (r *Remote) State() (multiview.PlayerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usableLocked(); err != nil {
		return multiview.StateUnstarted, err
	}
	return r.state, nil
}

// Destroy implements multiview.Handle. Destroying twice returns ErrDestroyed.
func (r *Remote) Destroy() error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return ErrDestroyed
	}
	r.destroyed = true
	r.mu.Unlock()

	r.factory.release(r)
	return r.send("destroy", nil)
}

func (r *Remote) command(op string, apply func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usableLocked(); err != nil {
		return err
	}
	apply()
	return r.send(op, nil)
}

func (r *Remote) usableLocked() error {
	if r.destroyed {
		return ErrDestroyed
	}
	if !r.ready {
		return ErrNotReady
	}
	return nil
}

func (r *Remote) send(op string, volume *int) error {
	cmd := Command{T: "player", Op: op, ID: r.id, Volume: volume}
	if op == "create" {
		vars := r.vars
		cmd.Vars = &vars
	}
	return r.factory.out.Broadcast(cmd)
}

// handle applies a page report and fires the readiness callback outside the lock.
func (r *Remote) handle(rep Report, log *slog.Logger) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	var ev *multiview.PlayerEvent
	switch rep.T {
	case "ready":
		r.ready = true
		ev = &multiview.PlayerEvent{Kind: multiview.EventReady, ID: r.id, Title: rep.Title}
	case "error":
		log.Info("player reported error", slog.String("stream_id", string(r.id)), slog.Int("code", rep.Code))
		ev = &multiview.PlayerEvent{Kind: multiview.EventErrored, ID: r.id}
	case "state":
		if rep.State != nil {
			r.state = *rep.State
		}
		if rep.Muted != nil {
			r.muted = *rep.Muted
		}
	}
	r.mu.Unlock()

	if ev != nil && r.onEvent != nil {
		r.onEvent(*ev)
	}
}
