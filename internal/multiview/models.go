package multiview

import "errors"

// StreamID is the canonical 11-character video identifier.
type StreamID string

// Side names one of the two columns.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

const (
	// ColumnCapacity is the maximum number of tiles in a single column.
	ColumnCapacity = 3

	// MaxStreams is the maximum number of active streams across both columns.
	MaxStreams = 2 * ColumnCapacity

	// DefaultVolume is used until the user moves the volume slider.
	DefaultVolume = 100
)

// Opposite returns the other column.
func (s Side) Opposite() Side {
	if s == SideRight {
		return SideLeft
	}
	return SideRight
}

// ParseSide parses "left" or "right". Anything else is reported as not ok.
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), true
	}
	return "", false
}

// Tile is the visual record of one active stream.
type Tile struct {
	ID      StreamID `json:"id"`
	Side    Side     `json:"side"`
	Order   int      `json:"order"`
	Title   string   `json:"title"`
	Errored bool     `json:"errored,omitempty"`
}

// Layout is the unit of persistence: column order plus global audio settings.
type Layout struct {
	Left     []StreamID `json:"left"`
	Right    []StreamID `json:"right"`
	MutedAll bool       `json:"muted_all"`
	Volume   int        `json:"volume"`
}

// View is a read-only snapshot of the manager handed to the page.
type View struct {
	Left     []Tile   `json:"left"`
	Right    []Tile   `json:"right"`
	MutedAll bool     `json:"muted_all"`
	Volume   int      `json:"volume"`
	Dragging StreamID `json:"dragging,omitempty"`
}

// Count returns the number of tiles in the view.
func (v View) Count() int {
	return len(v.Left) + len(v.Right)
}

// CapacityError is returned when an operation would exceed a column or total
// limit. Its message is meant to be shown to the user as is.
type CapacityError struct {
	msg string
}

func (e *CapacityError) Error() string { return e.msg }

var (
	// ErrTooManyStreams is returned when adding a seventh stream.
	ErrTooManyStreams = &CapacityError{msg: "Limitation: maximum 6 players."}

	// ErrColumnsFull is returned when neither column can take another tile.
	ErrColumnsFull = &CapacityError{msg: "Each column can contain up to 3 players."}

	// ErrTargetColumnFull is returned when transferring a tile into a full column.
	ErrTargetColumnFull = &CapacityError{msg: "Target column already has 3 players."}

	// ErrUnrecognizedInput is returned when text cannot be parsed into a StreamID.
	ErrUnrecognizedInput = errors.New("unrecognized stream input")

	// ErrInvalidPreset is returned for preset strings that are neither "auto" nor "L-R".
	ErrInvalidPreset = errors.New("invalid layout preset")
)

// IsCapacity reports whether err is a capacity failure.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}
