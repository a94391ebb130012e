package w3g

import (
	"encoding/json"
	"fmt"
	"time"
)

// Race represents a player's race as stored in the race flag field.
type Race uint8

const (
	RaceNone     Race = 0x00
	RaceHuman    Race = 0x01
	RaceOrc      Race = 0x02
	RaceNightElf Race = 0x04
	RaceUndead   Race = 0x08
	RaceDaemon   Race = 0x10
	RaceRandom   Race = 0x20
	RaceFixed    Race = 0x40
)

func (r Race) String() string {
	switch r {
	case RaceHuman:
		return "human"
	case RaceOrc:
		return "orc"
	case RaceNightElf:
		return "night elf"
	case RaceUndead:
		return "undead"
	case RaceDaemon:
		return "daemon"
	case RaceRandom:
		return "random"
	case RaceFixed:
		return "selectable/fixed"
	default:
		return "none"
	}
}

// MarshalJSON implements json.Marshaler for Race.
func (r Race) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// raceFromFlag converts a race flag value to a Race. Flags that are not
// a single known race bit resolve to none.
func raceFromFlag(flag uint32) Race {
	switch Race(flag) {
	case RaceHuman, RaceOrc, RaceNightElf, RaceUndead,
		RaceDaemon, RaceRandom, RaceFixed:
		return Race(flag)
	default:
		return RaceNone
	}
}

// SlotStatus represents slot status in the game lobby.
type SlotStatus uint8

const (
	SlotEmpty  SlotStatus = 0x00
	SlotClosed SlotStatus = 0x01
	SlotUsed   SlotStatus = 0x02
)

func (s SlotStatus) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotClosed:
		return "closed"
	case SlotUsed:
		return "used"
	default:
		return "unknown"
	}
}

// GameSpeed is the 2-bit lobby game speed setting.
type GameSpeed uint8

func (s GameSpeed) String() string {
	if int(s) < len(speedNames) {
		return speedNames[s]
	}
	return "unknown"
}

// ObserverSetting is the 2-bit lobby observer setting.
type ObserverSetting uint8

func (o ObserverSetting) String() string {
	if int(o) < len(observerNames) {
		return observerNames[o]
	}
	return "unknown"
}

// FixedTeamsSetting is the 2-bit lobby team locking setting.
type FixedTeamsSetting uint8

func (f FixedTeamsSetting) String() string {
	if int(f) < len(fixedTeamNames) {
		return fixedTeamNames[f]
	}
	return "unknown"
}

// AIStrength is the computer difficulty byte of a slot record.
type AIStrength uint8

func (a AIStrength) String() string {
	if n, ok := aiStrengthNames[uint8(a)]; ok {
		return n
	}
	return "unknown"
}

// GameType is the lobby game type code.
type GameType uint8

func (g GameType) String() string {
	if n, ok := gameTypeNames[uint8(g)]; ok {
		return n
	}
	return "unknown"
}

// ReplayHeader contains W3G file header information.
type ReplayHeader struct {
	HeaderSize          uint32 `json:"header_size"`
	CompressedSize      uint32 `json:"compressed_size"`
	HeaderVersion       uint32 `json:"header_version"`
	DecompressedSize    uint32 `json:"decompressed_size"`
	NumCompressedBlocks uint32 `json:"num_compressed_blocks"`

	// SubHeader fields
	GameIdentifier string `json:"game_identifier"`
	Version        uint32 `json:"version"`
	BuildNumber    uint16 `json:"build_number"`
	Flags          uint16 `json:"flags"`
	DurationMs     uint32 `json:"duration_ms"`
	CRC32          uint32 `json:"crc32"`
}

// Duration returns replay duration as time.Duration.
func (h *ReplayHeader) Duration() time.Duration {
	return time.Duration(h.DurationMs) * time.Millisecond
}

// IsMultiplayer returns true if replay is from a multiplayer game.
func (h *ReplayHeader) IsMultiplayer() bool {
	return h.Flags == FlagMultiplayer
}

// IsSinglePlayer returns true if replay is from a single player game.
func (h *ReplayHeader) IsSinglePlayer() bool {
	return h.Flags == FlagSinglePlayer
}

// IsReforged returns true if this replay was produced by the Reforged
// client, which changes the block framing.
func (h *ReplayHeader) IsReforged() bool {
	return h.BuildNumber >= ReforgedBuildThreshold
}

// IsExpansion returns true if this is a Frozen Throne replay.
func (h *ReplayHeader) IsExpansion() bool {
	return h.GameIdentifier == GameIDTFT
}

// revision returns the build number as a format revision for the
// size-sensitive decoders.
func (h *ReplayHeader) revision() formatRevision {
	return formatRevision(h.BuildNumber)
}

// VersionString returns a human-readable version string.
func (h *ReplayHeader) VersionString() string {
	// Reforged clients store 10000*major+minor, classic just the minor.
	if h.Version >= 10000 {
		return fmt.Sprintf("%d.%d", h.Version/10000, h.Version%10000)
	}
	return fmt.Sprintf("1.%d", h.Version)
}

// Player is one entry of the startup player list. Built once from a
// length-determined raw record; immutable afterwards.
type Player struct {
	ID        uint8  `json:"id"`
	Name      string `json:"name"`
	Race      Race   `json:"race"`
	IsHost    bool   `json:"is_host"`
	RuntimeMs uint32 `json:"-"`
	Raw       []byte `json:"-"`
	Size      int    `json:"-"`
}

// ReforgedPlayerMetadata is the optional per-player record present only
// in Reforged files, between the player list and the slot table.
type ReforgedPlayerMetadata struct {
	ID       uint8  `json:"id"`
	Name     string `json:"name"`
	Clan     string `json:"clan"`
	Portrait string `json:"portrait"`
	Raw      []byte `json:"-"`
	Size     int    `json:"-"`
}

// SlotRecord describes one lobby slot, independent of whether a human
// occupies it. AI strength is only present in records of 8 bytes or
// more, handicap only in records of 9 or more.
type SlotRecord struct {
	PlayerID uint8      `json:"player_id"`
	Status   SlotStatus `json:"status"`
	IsHuman  bool       `json:"is_human"`
	Team     uint8      `json:"team"`
	Color    uint8      `json:"color"`
	Race     Race       `json:"race"`
	AI       AIStrength `json:"ai"`
	Handicap uint8      `json:"handicap"`
	Raw      []byte     `json:"-"`
	Size     int        `json:"-"`
}

// ColorName returns the display name for the slot color, with an
// "other" fallback for out-of-range indices.
func (s *SlotRecord) ColorName() string {
	if int(s.Color) < len(colorNames) {
		return colorNames[s.Color]
	}
	return "other"
}

// GameSettings contains the bit-packed lobby configuration recovered
// from the de-obfuscated settings sub-stream.
type GameSettings struct {
	Speed                 GameSpeed         `json:"speed"`
	HideTerrain           bool              `json:"hide_terrain"`
	MapExplored           bool              `json:"map_explored"`
	AlwaysVisible         bool              `json:"always_visible"`
	DefaultVisibility     bool              `json:"default_visibility"`
	Observer              ObserverSetting   `json:"observer"`
	TeamsTogether         bool              `json:"teams_together"`
	FixedTeams            FixedTeamsSetting `json:"fixed_teams"`
	FullSharedUnitControl bool              `json:"full_shared_unit_control"`
	RandomHero            bool              `json:"random_hero"`
	RandomRaces           bool              `json:"random_races"`
	ObserverReferees      bool              `json:"observer_referees"`
	MapChecksum           string            `json:"map_checksum"`
}
