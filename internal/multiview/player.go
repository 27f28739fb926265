package multiview

// PlayerState mirrors the embedded player's numeric state codes.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

// Handle controls one active player. Calls may fail when the player is not
// ready or has gone away; the manager swallows those failures.
type Handle interface {
	Play() error
	Pause() error
	Mute() error
	UnMute() error
	IsMuted() (bool, error)
	SetVolume(v int) error
	State() (PlayerState, error)
	Destroy() error
}

// PlayerVars are the construction parameters sent to the embedded player.
type PlayerVars struct {
	VideoID        StreamID `json:"videoId"`
	Autoplay       int      `json:"autoplay"`
	PlaysInline    int      `json:"playsinline"`
	Rel            int      `json:"rel"`
	ModestBranding int      `json:"modestbranding"`
	EnableJSAPI    int      `json:"enablejsapi"`
}

// DefaultPlayerVars returns the parameters every stream is created with.
func DefaultPlayerVars(id StreamID) PlayerVars {
	return PlayerVars{
		VideoID:        id,
		Autoplay:       0,
		PlaysInline:    1,
		Rel:            0,
		ModestBranding: 1,
		EnableJSAPI:    1,
	}
}

// EventKind distinguishes the two readiness outcomes of a player.
type EventKind int

const (
	EventReady EventKind = iota
	EventErrored
)

func (k EventKind) String() string {
	if k == EventErrored {
		return "errored"
	}
	return "ready"
}

// PlayerEvent is delivered once a player becomes ready or fails.
// Title is only set for EventReady and may be empty.
type PlayerEvent struct {
	Kind  EventKind
	ID    StreamID
	Title string
}

// PlayerFactory creates a Handle for a stream. onEvent may be called from any
// goroutine after NewPlayer returns.
type PlayerFactory interface {
	NewPlayer(vars PlayerVars, onEvent func(PlayerEvent)) (Handle, error)
}
