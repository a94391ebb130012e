package w3g

import (
	"encoding/json"
	"strings"
)

// Replay is a fully decoded replay: header, startup records, settings
// and the time-ordered event stream, plus derived query methods.
type Replay struct {
	Header *ReplayHeader `json:"header"`

	GameName    string        `json:"game_name"`
	MapName     string        `json:"map_name"`
	CreatorName string        `json:"creator_name"`
	Settings    *GameSettings `json:"settings"`

	PlayerCount uint32   `json:"player_count"`
	GameType    GameType `json:"game_type"`
	IsPublic    bool     `json:"is_public"`
	IsPrivate   bool     `json:"is_private"`
	LanguageID  []byte   `json:"-"`

	Players          []*Player                 `json:"players"`
	ReforgedMetadata []*ReforgedPlayerMetadata `json:"reforged_metadata,omitempty"`
	Slots            []*SlotRecord             `json:"slots"`

	RandomSeed     []byte `json:"-"`
	SelectMode     uint8  `json:"select_mode"`
	StartPositions uint8  `json:"start_positions"`

	Events []Event `json:"-"`

	// ClockMs is the final value of the running clock, i.e. the sum of
	// every time slot delta.
	ClockMs uint32 `json:"duration_ms"`

	names       NameTable
	playersByID map[uint8]*Player
	slotsByID   map[uint8]*SlotRecord
}

func (r *Replay) buildIndexes() {
	r.playersByID = make(map[uint8]*Player, len(r.Players))
	for _, p := range r.Players {
		r.playersByID[p.ID] = p
	}
	r.slotsByID = make(map[uint8]*SlotRecord, len(r.Slots))
	for _, s := range r.Slots {
		r.slotsByID[s.PlayerID] = s
	}
}

// SelectModeName returns the human-readable team selection mode.
func (r *Replay) SelectModeName() string {
	if name, ok := selectModeNames[r.SelectMode]; ok {
		return name
	}
	return "unknown"
}

// Player returns the player record for an id, preferring the explicit
// player list and falling back to the slot table for slot-only
// participants such as observers.
func (r *Replay) Player(id uint8) (*Player, error) {
	if p, ok := r.playersByID[id]; ok {
		return p, nil
	}
	if s, ok := r.slotsByID[id]; ok {
		return &Player{ID: s.PlayerID, Name: "observer", Race: s.Race}, nil
	}
	return nil, &PlayerNotFoundError{PlayerID: id}
}

// PlayerName returns a display name for an id, degrading to "unknown"
// when the id appears in neither table.
func (r *Replay) PlayerName(id uint8) string {
	p, err := r.Player(id)
	if err != nil {
		return "unknown"
	}
	return p.Name
}

func (r *Replay) slotRecord(id uint8) (*SlotRecord, bool) {
	s, ok := r.slotsByID[id]
	return s, ok
}

// raceActionScanLimit bounds how many early events the race inference
// heuristic inspects for a race-identifying first build order.
const raceActionScanLimit = 50

var raceNames = map[string]Race{
	"human":     RaceHuman,
	"orc":       RaceOrc,
	"night elf": RaceNightElf,
	"undead":    RaceUndead,
}

// PlayerRace resolves a player's race. The slot value wins when it
// names a concrete race; a none or random slot falls back to scanning
// the opening actions for a race-identifying object.
func (r *Replay) PlayerRace(id uint8) (Race, error) {
	p, err := r.Player(id)
	if err != nil {
		return RaceNone, err
	}
	race := p.Race
	if s, ok := r.slotRecord(id); ok && race == RaceNone {
		race = s.Race
	}
	if race != RaceNone && race&RaceRandom == 0 {
		return race, nil
	}
	if inferred, ok := r.inferRace(id); ok {
		return inferred, nil
	}
	return race, nil
}

// IsRandomRace reports whether a player picked random at the lobby.
func (r *Replay) IsRandomRace(id uint8) bool {
	p, err := r.Player(id)
	if err != nil {
		return false
	}
	race := p.Race
	if s, ok := r.slotRecord(id); ok && race == RaceNone {
		race = s.Race
	}
	return race&RaceRandom != 0
}

func (r *Replay) inferRace(id uint8) (Race, bool) {
	if r.names == nil {
		return RaceNone, false
	}
	limit := len(r.Events)
	if limit > raceActionScanLimit {
		limit = raceActionScanLimit
	}
	for _, e := range r.Events[:limit] {
		ae, ok := e.(*ActionEvent)
		if !ok || ae.PlayerID != id {
			continue
		}
		code, ok := actionItemCode(ae.Action)
		if !ok {
			continue
		}
		if raceName, ok := r.names.RaceOf(code); ok {
			if race, ok := raceNames[raceName]; ok {
				return race, true
			}
		}
	}
	return RaceNone, false
}

// actionItemCode extracts the primary object code from an action, when
// it has one.
func actionItemCode(a Action) (ItemCode, bool) {
	switch v := a.(type) {
	case *Ability:
		return v.Item, true
	case *AbilityPosition:
		return v.Item, true
	case *AbilityPositionObject:
		return v.Item, true
	case *GiveItem:
		return v.Item, true
	case *DoubleAbility:
		return v.Item, true
	case *SelectSubgroup:
		return v.Item, true
	}
	return ItemCode{}, false
}

// winnerEventWindow is how many trailing events the winner heuristic
// inspects.
const winnerEventWindow = 300

// Winner applies the outcome heuristic over the tail of the event
// stream. Explicit won or lost leave results decide immediately; a
// plain departure is treated as a concession when that player said
// "gg" near the end; failing those, the last non-observer to leave is
// presumed the winner.
func (r *Replay) Winner() (uint8, error) {
	start := len(r.Events) - winnerEventWindow
	if start < 0 {
		start = 0
	}
	tail := r.Events[start:]

	// Explicit results take priority over any concession, no matter
	// which comes later in the stream.
	for i := len(tail) - 1; i >= 0; i-- {
		lg, ok := tail[i].(*LeftGame)
		if !ok {
			continue
		}
		switch lg.Result() {
		case "won":
			return lg.PlayerID, nil
		case "lost":
			if !r.isContestant(lg.PlayerID) {
				continue
			}
			if pid, ok := r.otherContestant(lg.PlayerID); ok {
				return pid, nil
			}
		}
	}

	for i := len(tail) - 1; i >= 0; i-- {
		lg, ok := tail[i].(*LeftGame)
		if !ok || lg.Result() != "left" {
			continue
		}
		if r.saidGG(tail, lg.PlayerID) {
			if pid, ok := r.otherContestant(lg.PlayerID); ok {
				return pid, nil
			}
		}
	}

	// Last resort: the last leaver that holds a real playing slot.
	for i := len(tail) - 1; i >= 0; i-- {
		lg, ok := tail[i].(*LeftGame)
		if !ok || !r.isContestant(lg.PlayerID) {
			continue
		}
		return lg.PlayerID, nil
	}
	return 0, &WinnerIndeterminateError{}
}

// isContestant reports whether the id holds a real playing slot.
func (r *Replay) isContestant(id uint8) bool {
	s, ok := r.slotRecord(id)
	return ok && id != 0 && s.Team < ObserverTeamClassic
}

// otherContestant returns the id of a playing-slot participant other
// than the given one.
func (r *Replay) otherContestant(id uint8) (uint8, bool) {
	for _, s := range r.Slots {
		if s.PlayerID == id || s.PlayerID == 0 {
			continue
		}
		if s.Team < ObserverTeamClassic {
			return s.PlayerID, true
		}
	}
	return 0, false
}

// saidGG reports whether the player sent a concession message within
// the inspected window.
func (r *Replay) saidGG(tail []Event, id uint8) bool {
	for i := len(tail) - 1; i >= 0; i-- {
		c, ok := tail[i].(*Chat)
		if !ok || c.PlayerID != id {
			continue
		}
		msg := strings.ToLower(strings.TrimSpace(c.Message))
		if msg == "g" || msg == "gg" {
			return true
		}
	}
	return false
}

// ToJSON serializes the replay to indented JSON.
func (r *Replay) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
