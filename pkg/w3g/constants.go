package w3g

// MagicString is the magic bytes identifying W3G replay files (28 bytes)
var MagicString = []byte("Warcraft III recorded game\x1a\x00")

// Header sizes
const (
	BaseHeaderSize  = 0x30 // 48 bytes for base header
	SubHeaderV0Size = 0x10 // 16 bytes
	SubHeaderV1Size = 0x14 // 20 bytes
	HeaderV0Total   = 0x40 // 64 bytes
	HeaderV1Total   = 0x44 // 68 bytes
)

// Game identifiers (stored reversed on disk)
const (
	GameIDClassic = "WAR3" // Reign of Chaos / Classic
	GameIDTFT     = "W3XP" // The Frozen Throne
)

// Flags
const (
	FlagSinglePlayer = 0x0000
	FlagMultiplayer  = 0x8000
)

// Observer team IDs
const (
	ObserverTeamClassic  = 12
	ObserverTeamReforged = 24
)

// Build numbers at which the binary layout changed. Patches between
// thresholds share a layout, so only these four matter.
const (
	Build1_06  = 4656
	Build1_07  = 6031
	Build1_13  = 6037
	Build1_14B = 6040
)

// ReforgedBuildThreshold marks the first build produced by the Reforged
// client, which pads block headers and may carry player metadata records.
const ReforgedBuildThreshold = 6089

// formatRevision is the build number, carried into every size-sensitive
// decoder. Each predicate reproduces one exact threshold comparison so
// that version skew stays in one place.
type formatRevision uint16

// wideAbilityFlags reports whether ability flags occupy a word instead
// of a single byte (1.13 and later).
func (r formatRevision) wideAbilityFlags() bool { return uint16(r) >= Build1_13 }

// abilityTrailer reports whether ability records carry two trailing
// unknown dwords (1.07 and later).
func (r formatRevision) abilityTrailer() bool { return uint16(r) >= Build1_07 }

// extendedSubgroup reports whether subgroup selection carries an item
// code and object id instead of a bare slot index (1.14b and later).
func (r formatRevision) extendedSubgroup() bool { return uint16(r) >= Build1_14B }

// wideScenarioTrigger reports whether scenario triggers are 13 bytes
// instead of 9 (1.07 and later).
func (r formatRevision) wideScenarioTrigger() bool { return uint16(r) >= Build1_07 }

// legacyMenuOpcodes reports whether the submenu/signal opcode group sits
// one value lower (1.06 and earlier).
func (r formatRevision) legacyMenuOpcodes() bool { return uint16(r) <= Build1_06 }

// legacyItemOpcodes reports whether the ground-item opcode group sits
// one value lower (1.14b and earlier).
func (r formatRevision) legacyItemOpcodes() bool { return uint16(r) <= Build1_14B }

// Top-level block IDs
const (
	BlockEnd         = 0x00
	BlockLeaveGame   = 0x17
	BlockGameStart   = 0x19
	BlockFirstStart  = 0x1A
	BlockSecondStart = 0x1B
	BlockThirdStart  = 0x1C
	BlockTimeSlotOld = 0x1E
	BlockTimeSlot    = 0x1F
	BlockChat        = 0x20
	BlockChecksum    = 0x22
	BlockUnknown23   = 0x23
	BlockCountdown   = 0x2F
)

// Record IDs
const (
	RecordHost             = 0x00
	RecordAdditionalPlayer = 0x16
)

// Chat flags
const (
	ChatFlagStartup = 0x10
	ChatFlagNormal  = 0x20
)

// chatModes maps the chat mode selector to the audience name. Values
// above 0x02 address a single player and are handled separately.
var chatModes = map[uint32]string{
	0x00: "all",
	0x01: "allies",
	0x02: "observers",
}

// Privacy codes
const (
	PrivacyPublic  = 0x00
	PrivacyPrivate = 0x08
)

// gameTypeNames maps the game type code to a display name.
var gameTypeNames = map[uint8]string{
	0x00: "unknown",
	0x01: "1on1",
	0x09: "custom",
	0x1D: "single player game",
	0x20: "ladder team game",
}

// selectModeNames maps the lobby select mode code to a display name.
var selectModeNames = map[uint8]string{
	0x00: "team & race selectable",
	0x01: "team not selectable",
	0x03: "team & race not selectable",
	0x04: "race fixed to random",
	0xCC: "automated match making",
	0xAC: "automated match making",
}

// colorNames lists player colors by slot color index. The late indices
// are RGB hex values because the Reforged additions have no common names.
var colorNames = []string{
	"red", "blue", "cyan", "purple",
	"yellow", "orange", "green", "pink",
	"gray", "light blue", "dark green", "brown",
	"9B0000", "0000C3", "00EAFF", "BE00FE",
	"EBCD87", "F8A48B", "BFFF80", "DCB9EB",
	"282828", "EBF0FF", "00781E", "A46F33",
	"observer",
}

// speedNames lists game speeds by the 2-bit speed field.
var speedNames = []string{"slow", "normal", "fast", "unused"}

// observerNames lists observer settings by the 2-bit observer field.
var observerNames = []string{"off", "unused", "defeat", "on"}

// fixedTeamNames lists team locking by the 2-bit fixed-teams field.
var fixedTeamNames = []string{"off", "unused", "unused", "on"}

// aiStrengthNames maps the slot AI byte to a difficulty name.
var aiStrengthNames = map[uint8]string{
	0x00: "easy",
	0x01: "normal",
	0x02: "insane",
}
