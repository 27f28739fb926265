package multiview

import (
	"fmt"
	"log/slog"
	"sync"
)

// Pointer is the vertical pointer position over a drag target, in the same
// coordinate space as the target's top edge and height.
type Pointer struct {
	Y      float64 `json:"y"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// before reports whether the pointer is above the target's midpoint.
func (p Pointer) before() bool {
	return p.Y-p.Top < p.Height/2
}

// Manager owns the column layout and the tile and handle registries.
// All operations are serialised by one mutex; handle calls never block, so
// holding it across them is fine. Every mutation is persisted to the Store
// before the method returns.
type Manager struct {
	mu       sync.Mutex
	store    Store
	players  PlayerFactory
	log      *slog.Logger
	cols     Columns
	tiles    map[StreamID]*Tile
	handles  map[StreamID]Handle
	mutedAll bool
	volume   int
	dragging StreamID
	watchers []func(View)
}

// NewManager returns an empty Manager. Call Restore to load a saved layout.
func NewManager(store Store, players PlayerFactory, log *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		players: players,
		log:     log,
		tiles:   make(map[StreamID]*Tile),
		handles: make(map[StreamID]Handle),
		volume:  DefaultVolume,
	}
}

// OnChange registers fn to receive a View after every change, including title
// updates and live drag moves that are not persisted. fn runs with the manager
// locked and must not call back into it.
func (m *Manager) OnChange(fn func(View)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// Restore loads the saved layout and recreates its streams. A failing store
// leaves the manager empty and returns the error.
func (m *Manager) Restore() error {
	l, err := LoadLayout(m.store)
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.mutedAll = l.MutedAll
	m.volume = l.Volume
	restore := func(ids []StreamID, side Side) {
		for _, id := range ids {
			if !ValidStreamID(string(id)) {
				m.log.Warn("skipping invalid stored stream id", slog.String("stream_id", string(id)))
				continue
			}
			if _, err := m.addLocked(id, side); err != nil {
				m.log.Warn("restore stream failed", slog.String("stream_id", string(id)), slog.String("error", err.Error()))
			}
		}
	}
	restore(l.Left, SideLeft)
	restore(l.Right, SideRight)
	if l.MutedAll {
		m.setMutedAllLocked(true)
	}

	m.log.Info("layout restored",
		slog.Int("left", len(m.cols.Left)),
		slog.Int("right", len(m.cols.Right)),
		slog.Bool("muted_all", m.mutedAll),
		slog.Int("volume", m.volume))
	return nil
}

// AddFromInput extracts a StreamID from pasted text and adds it.
func (m *Manager) AddFromInput(input string, side Side) (StreamID, bool, error) {
	id, ok := ExtractStreamID(input)
	if !ok {
		return "", false, ErrUnrecognizedInput
	}
	added, err := m.Add(id, side)
	return id, added, err
}

// Add creates a tile and handle for id. side may be empty to let the manager
// pick the emptier column. An id that is already active is ignored and added
// is false. Capacity failures are returned as *CapacityError.
func (m *Manager) Add(id StreamID, side Side) (added bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(id, side)
}

func (m *Manager) addLocked(id StreamID, hint Side) (bool, error) {
	if id == "" || m.cols.Contains(id) {
		return false, nil
	}
	if m.cols.Len() >= MaxStreams {
		return false, ErrTooManyStreams
	}

	side := hint
	if side == "" {
		side = SideLeft
		if len(m.cols.Right) < len(m.cols.Left) {
			side = SideRight
		}
	}
	if m.cols.Full(side) {
		side = side.Opposite()
	}
	if m.cols.Full(side) {
		return false, ErrColumnsFull
	}

	m.cols = m.cols.Append(side, id)
	m.tiles[id] = &Tile{ID: id, Title: string(id)}
	m.syncTilesLocked()

	var h Handle
	h, err := m.players.NewPlayer(DefaultPlayerVars(id), func(ev PlayerEvent) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.handleEventLocked(ev, h)
	})
	if err != nil {
		m.cols = m.cols.Remove(id)
		delete(m.tiles, id)
		m.syncTilesLocked()
		return false, fmt.Errorf("create player %s: %w", id, err)
	}
	m.handles[id] = h

	m.log.Debug("stream added", slog.String("stream_id", string(id)), slog.String("side", string(side)))
	m.persistLocked()
	return true, nil
}

// handleEventLocked applies a readiness event, ignoring events from handles
// that have since been removed or replaced.
func (m *Manager) handleEventLocked(ev PlayerEvent, from Handle) {
	if h, ok := m.handles[ev.ID]; !ok || h != from {
		return
	}
	tile := m.tiles[ev.ID]
	switch ev.Kind {
	case EventReady:
		tile.Title = ev.Title
		if tile.Title == "" {
			tile.Title = string(ev.ID)
		}
		tile.Errored = false
		if m.mutedAll {
			m.try(ev.ID, "mute", from.Mute)
		}
		if m.volume != DefaultVolume {
			m.try(ev.ID, "set volume", func() error { return from.SetVolume(m.volume) })
		}
	case EventErrored:
		tile.Title = string(ev.ID) + " (error)"
		tile.Errored = true
	}
	m.notifyLocked()
}

// Remove destroys the handle and tile for id. Removing an absent id is a no-op.
func (m *Manager) Remove(id StreamID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removeLocked(id) {
		return false
	}
	m.persistLocked()
	return true
}

// Clear removes every stream.
func (m *Manager) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.cols.IDs() {
		if m.removeLocked(id) {
			n++
		}
	}
	if n > 0 {
		m.persistLocked()
	}
	return n
}

func (m *Manager) removeLocked(id StreamID) bool {
	h, hasHandle := m.handles[id]
	_, hasTile := m.tiles[id]
	if !hasHandle && !hasTile {
		return false
	}
	if hasHandle {
		m.try(id, "destroy", h.Destroy)
		delete(m.handles, id)
	}
	m.cols = m.cols.Remove(id)
	delete(m.tiles, id)
	if m.dragging == id {
		m.dragging = ""
	}
	m.syncTilesLocked()
	m.log.Debug("stream removed", slog.String("stream_id", string(id)))
	return true
}

// MoveEarlier moves id one position towards the top of its column.
func (m *Manager) MoveEarlier(id StreamID) bool {
	return m.step(id, -1)
}

// MoveLater moves id one position towards the bottom of its column.
func (m *Manager) MoveLater(id StreamID) bool {
	return m.step(id, 1)
}

func (m *Manager) step(id StreamID, delta int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, ok := m.cols.Step(id, delta)
	if !ok {
		return false
	}
	m.setColumnsLocked(cols)
	m.persistLocked()
	return true
}

// MoveToSide appends id to the end of the other column. It fails with
// ErrTargetColumnFull when side already holds ColumnCapacity tiles.
func (m *Manager) MoveToSide(id StreamID, side Side) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, moved, err := m.cols.MoveToColumn(id, side)
	if err != nil || !moved {
		return err
	}
	m.setColumnsLocked(cols)
	m.persistLocked()
	return nil
}

// DragStart marks id as the tile being dragged.
func (m *Manager) DragStart(id StreamID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tiles[id]; !ok {
		return false
	}
	m.dragging = id
	m.notifyLocked()
	return true
}

// DragOverTile relocates the dragged tile before or after target depending on
// which half of target the pointer is over. The move is live: it is visible in
// the View immediately and persisted on Drop or DragEnd.
func (m *Manager) DragOverTile(target StreamID, p Pointer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dragging == "" || m.dragging == target {
		return false
	}
	cols, ok := m.cols.MoveBefore(m.dragging, target, !p.before())
	if !ok {
		return false
	}
	m.setColumnsLocked(cols)
	m.notifyLocked()
	return true
}

// DragOverColumn appends the dragged tile to side when the pointer is over the
// column body rather than a tile. A full column rejects the tile with
// ErrTargetColumnFull and the tile stays where it was.
func (m *Manager) DragOverColumn(side Side) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dragging == "" {
		return false, nil
	}
	cols, moved, err := m.cols.MoveToColumn(m.dragging, side)
	if err != nil || !moved {
		return false, err
	}
	m.setColumnsLocked(cols)
	m.notifyLocked()
	return true, nil
}

// Drop persists the order produced by the drag so far.
func (m *Manager) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistLocked()
}

// DragEnd clears the drag state and persists the layout.
func (m *Manager) DragEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dragging = ""
	m.persistLocked()
}

// PlayAll starts every player.
func (m *Manager) PlayAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eachLocked("play", Handle.Play)
}

// PauseAll pauses every player.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eachLocked("pause", Handle.Pause)
}

// TogglePlayAll pauses everything when the first player in layout order is
// playing and plays everything otherwise. It reports whether playback was
// started.
func (m *Manager) TogglePlayAll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.cols.IDs()
	if len(ids) == 0 {
		return false
	}
	first, ok := m.handles[ids[0]]
	if !ok {
		return false
	}
	state, err := first.State()
	if err != nil {
		m.log.Debug("player state unavailable", slog.String("stream_id", string(ids[0])), slog.String("error", err.Error()))
		return false
	}
	if state == StatePlaying {
		m.eachLocked("pause", Handle.Pause)
		return false
	}
	m.eachLocked("play", Handle.Play)
	return true
}

// SetMutedAll forces the global mute flag and applies it to every player.
func (m *Manager) SetMutedAll(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setMutedAllLocked(muted)
}

// ToggleMuteAll flips the global mute flag and returns the new value.
func (m *Manager) ToggleMuteAll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setMutedAllLocked(!m.mutedAll)
	return m.mutedAll
}

func (m *Manager) setMutedAllLocked(muted bool) {
	m.mutedAll = muted
	if muted {
		m.eachLocked("mute", Handle.Mute)
	} else {
		m.eachLocked("unmute", Handle.UnMute)
	}
	m.persistLocked()
}

// SetAllVolume clamps v to 0..100, applies it to every player and returns
// the applied value.
func (m *Manager) SetAllVolume(v int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clamp(v, 0, 100)
	m.eachLocked("set volume", func(h Handle) error { return h.SetVolume(m.volume) })
	m.persistLocked()
	return m.volume
}

// Play starts one player. Unknown ids are ignored.
func (m *Manager) Play(id StreamID) {
	m.one(id, "play", Handle.Play)
}

// Pause pauses one player. Unknown ids are ignored.
func (m *Manager) Pause(id StreamID) {
	m.one(id, "pause", Handle.Pause)
}

// ToggleMute flips the mute state of one player. Unknown ids are ignored.
func (m *Manager) ToggleMute(id StreamID) {
	m.one(id, "toggle mute", func(h Handle) error {
		muted, err := h.IsMuted()
		if err != nil {
			return err
		}
		if muted {
			return h.UnMute()
		}
		return h.Mute()
	})
}

func (m *Manager) one(id StreamID, op string, fn func(Handle) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[id]
	if !ok {
		return
	}
	m.try(id, op, func() error { return fn(h) })
}

// ApplyPreset redistributes the streams according to an "L-R" preset.
// "auto" only persists the current layout.
func (m *Manager) ApplyPreset(preset string) error {
	leftMax, rightMax, apply, err := ParsePreset(preset)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if apply {
		m.setColumnsLocked(m.cols.Redistribute(leftMax, rightMax))
	}
	m.persistLocked()
	return nil
}

// View returns a snapshot for rendering.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Layout returns the layout as it would be persisted.
func (m *Manager) Layout() Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layoutLocked()
}

// Count returns the number of active streams.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

func (m *Manager) eachLocked(op string, fn func(Handle) error) {
	for _, id := range m.cols.IDs() {
		h, ok := m.handles[id]
		if !ok {
			continue
		}
		m.try(id, op, func() error { return fn(h) })
	}
}

// try runs a player call and swallows its failure.
func (m *Manager) try(id StreamID, op string, fn func() error) {
	if err := fn(); err != nil {
		m.log.Debug("player call failed",
			slog.String("stream_id", string(id)),
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
}

func (m *Manager) setColumnsLocked(cols Columns) {
	m.cols = cols
	m.syncTilesLocked()
}

func (m *Manager) syncTilesLocked() {
	for _, side := range []Side{SideLeft, SideRight} {
		for i, id := range m.cols.Column(side) {
			if t, ok := m.tiles[id]; ok {
				t.Side = side
				t.Order = i
			}
		}
	}
}

func (m *Manager) persistLocked() {
	if err := SaveLayout(m.store, m.layoutLocked()); err != nil {
		m.log.Warn("persist layout failed", slog.String("error", err.Error()))
	}
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	if len(m.watchers) == 0 {
		return
	}
	v := m.viewLocked()
	for _, fn := range m.watchers {
		fn(v)
	}
}

func (m *Manager) layoutLocked() Layout {
	return Layout{
		Left:     append([]StreamID{}, m.cols.Left...),
		Right:    append([]StreamID{}, m.cols.Right...),
		MutedAll: m.mutedAll,
		Volume:   m.volume,
	}
}

func (m *Manager) viewLocked() View {
	tiles := func(ids []StreamID) []Tile {
		out := make([]Tile, 0, len(ids))
		for _, id := range ids {
			if t, ok := m.tiles[id]; ok {
				out = append(out, *t)
			}
		}
		return out
	}
	return View{
		Left:     tiles(m.cols.Left),
		Right:    tiles(m.cols.Right),
		MutedAll: m.mutedAll,
		Volume:   m.volume,
		Dragging: m.dragging,
	}
}
