package multiview

import (
	"errors"
	"io"
	"log/slog"
)

// Seven distinct, well-formed ids.
const (
	idA StreamID = "dQw4w9WgXcQ"
	idB StreamID = "jNQXAC9IVRw"
	idC StreamID = "9bZkp7q19f0"
	idD StreamID = "kJQP7kiw5Fk"
	idE StreamID = "RgKAFK5djSk"
	idF StreamID = "OPf0YbXqDm0"
	idG StreamID = "CevxZvSJLk8"
)

var errBroken = errors.New("player in unexpected state")

type fakeHandle struct {
	id        StreamID
	muted     bool
	volume    int
	state     PlayerState
	destroyed bool
	broken    bool
	calls     []string
	onEvent   func(PlayerEvent)
}

func (h *fakeHandle) record(op string) error {
	h.calls = append(h.calls, op)
	if h.broken {
		return errBroken
	}
	return nil
}

func (h *fakeHandle) Play() error {
	if err := h.record("play"); err != nil {
		return err
	}
	h.state = StatePlaying
	return nil
}

func (h *fakeHandle) Pause() error {
	if err := h.record("pause"); err != nil {
		return err
	}
	h.state = StatePaused
	return nil
}

func (h *fakeHandle) Mute() error {
	if err := h.record("mute"); err != nil {
		return err
	}
	h.muted = true
	return nil
}

func (h *fakeHandle) UnMute() error {
	if err := h.record("unmute"); err != nil {
		return err
	}
	h.muted = false
	return nil
}

func (h *fakeHandle) IsMuted() (bool, error) {
	if h.broken {
		return false, errBroken
	}
	return h.muted, nil
}

func (h *fakeHandle) SetVolume(v int) error {
	if err := h.record("volume"); err != nil {
		return err
	}
	h.volume = v
	return nil
}

func (h *fakeHandle) State() (PlayerState, error) {
	if h.broken {
		return StateUnstarted, errBroken
	}
	return h.state, nil
}

func (h *fakeHandle) Destroy() error {
	h.destroyed = true
	return h.record("destroy")
}

func (h *fakeHandle) ready(title string) {
	h.onEvent(PlayerEvent{Kind: EventReady, ID: h.id, Title: title})
}

func (h *fakeHandle) fail() {
	h.onEvent(PlayerEvent{Kind: EventErrored, ID: h.id})
}

type fakeFactory struct {
	handles map[StreamID]*fakeHandle
	vars    []PlayerVars
	err     error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{handles: make(map[StreamID]*fakeHandle)}
}

func (f *fakeFactory) NewPlayer(vars PlayerVars, onEvent func(PlayerEvent)) (Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandle{id: vars.VideoID, volume: DefaultVolume, state: StateUnstarted, onEvent: onEvent}
	f.handles[vars.VideoID] = h
	f.vars = append(f.vars, vars)
	return h, nil
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingStore) Set(string, string) error { return errors.New("disk gone") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager() (*Manager, *InMemoryStore, *fakeFactory) {
	store := NewInMemoryStore()
	players := newFakeFactory()
	return NewManager(store, players, discardLogger()), store, players
}
