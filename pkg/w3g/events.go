package w3g

import "fmt"

// Event is one decoded entry of the replay's event stream. Every event
// carries the game clock (ms) at which it was recorded. Events are
// immutable once appended; the only later adjustment is the next-link
// between adjacent LeftGame events.
type Event interface {
	Time() uint32
}

// eventTime embeds the game clock timestamp shared by all events.
type eventTime struct {
	At uint32 `json:"time_ms"`
}

func (e eventTime) Time() uint32 { return e.At }

// strTime renders a clock value the way the event log prints it.
func strTime(ms uint32) string {
	secs := float64(ms) / 1000.0
	s := secs - float64(int(secs)/60*60)
	m := int(secs/60) % 60
	h := int(secs / 3600)
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%02d:%06.3f", m, s)
	}
	return fmt.Sprintf("%06.3f", s)
}

// Chat is an in-game or lobby chat message. Mode is the audience:
// "startup", "all", "allies", "observers", or "player{N}".
type Chat struct {
	eventTime
	PlayerID uint8  `json:"player_id"`
	Mode     string `json:"mode"`
	Message  string `json:"message"`
}

func (c *Chat) String() string {
	return fmt.Sprintf("[%s] <%s> player %d: %s", strTime(c.At), c.Mode, c.PlayerID, c.Message)
}

// CloseSource tells which side of the connection recorded a leave.
type CloseSource uint8

const (
	ClosedByUnknown CloseSource = iota
	ClosedByRemote
	ClosedByLocal
)

func (c CloseSource) String() string {
	switch c {
	case ClosedByRemote:
		return "remote"
	case ClosedByLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Leave result codes resolve through three distinct tables: one for
// remote closes, and two for local closes depending on whether the
// event is the terminal one in the leave chain.
var remoteLeaveResults = map[uint32]string{
	0x01: "left",
	0x07: "left",
	0x08: "lost",
	0x09: "won",
	0x0A: "draw",
	0x0B: "left",
	0x0D: "left",
}

var localInterimLeaveResults = map[uint32]string{
	0x01: "disconnected",
	0x07: "lost",
	0x08: "lost",
	0x09: "won",
	0x0A: "draw",
	0x0B: "lost",
}

var localFinalLeaveResults = map[uint32]string{
	0x01: "disconnected",
	0x08: "lost",
	0x09: "won",
}

// LeftGame records a player leaving the game. Inconclusive is true when
// the result cannot be trusted on its own: it is false for the first
// leave seen, unconditionally true when two or fewer players remain,
// and otherwise true iff Counter continues the previous leave's counter.
type LeftGame struct {
	eventTime
	PlayerID     uint8       `json:"player_id"`
	Reason       uint32      `json:"reason"`
	ClosedBy     CloseSource `json:"closed_by"`
	ResultCode   uint32      `json:"result_code"`
	Inconclusive bool        `json:"inconclusive"`
	Counter      uint32      `json:"-"`

	// Next links to the following LeftGame event, set when that event
	// is decoded. Nil marks the terminal leave of the chain.
	Next *LeftGame `json:"-"`
}

// Result interprets the result code. Local closes read different tables
// for terminal and non-terminal leaves, and the 0x07/0x0B codes of a
// terminal local leave flip on the Inconclusive flag.
func (e *LeftGame) Result() string {
	switch e.ClosedBy {
	case ClosedByRemote:
		if r, ok := remoteLeaveResults[e.ResultCode]; ok {
			return r
		}
	case ClosedByLocal:
		if e.Next == nil {
			if e.ResultCode == 0x07 || e.ResultCode == 0x0B {
				if e.Inconclusive {
					return "won"
				}
				return "lost"
			}
			if r, ok := localFinalLeaveResults[e.ResultCode]; ok {
				return r
			}
			return "left"
		}
		if r, ok := localInterimLeaveResults[e.ResultCode]; ok {
			return r
		}
	}
	return "left"
}

func (e *LeftGame) String() string {
	return fmt.Sprintf("[%s] <%s> player %d left game, %s",
		strTime(e.At), e.ClosedBy, e.PlayerID, e.Result())
}

// Countdown records the end-of-game countdown state.
type Countdown struct {
	eventTime
	Mode string `json:"mode"` // "running" or "over"
	Secs uint32 `json:"secs"`
}

func (e *Countdown) String() string {
	return fmt.Sprintf("[%s] game countdown %s, %02d:%02d left",
		strTime(e.At), e.Mode, e.Secs/60, e.Secs%60)
}

// ActionEvent wraps one typed action decoded from a player's command
// payload within a time slot.
type ActionEvent struct {
	eventTime
	PlayerID uint8  `json:"player_id"`
	Action   Action `json:"action"`
}

func (e *ActionEvent) String() string {
	return fmt.Sprintf("[%s] <%s> player %d", strTime(e.At), e.Action.Name(), e.PlayerID)
}

// CountsAPM reports whether this event counts toward the APM metric.
func (e *ActionEvent) CountsAPM() bool {
	return e.Action.APM()
}
