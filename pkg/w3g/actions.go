package w3g

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Action is one typed command decoded from a player's command payload.
// Each variant reports its display name and whether it counts toward
// the actions-per-minute metric.
type Action interface {
	Name() string
	APM() bool
}

// actionDecoder decodes one action variant from the front of block
// (block[0] is the opcode) and returns the variant and the number of
// bytes it consumed. A nil variant abandons the rest of the payload.
type actionDecoder func(rev formatRevision, block []byte) (Action, int)

// ItemCode is a 4-byte object/ability code. String codes are stored on
// disk reversed and are flipped to readable order on decode; numeric
// command codes (marked by a 0x0D 0x00 suffix) are kept as-is.
type ItemCode [4]byte

// readItemCode decodes the code at the front of b.
func readItemCode(b []byte) ItemCode {
	var c ItemCode
	if b[2] == 0x0D && b[3] == 0x00 {
		copy(c[:], b[:4])
		return c
	}
	c[0], c[1], c[2], c[3] = b[3], b[2], b[1], b[0]
	return c
}

// IsNumeric reports whether this is a numeric command code rather than
// a readable string code.
func (c ItemCode) IsNumeric() bool { return c[2] == 0x0D && c[3] == 0x00 }

// Command returns the numeric command value. Only meaningful when
// IsNumeric is true.
func (c ItemCode) Command() uint16 { return binary.LittleEndian.Uint16(c[0:2]) }

func (c ItemCode) String() string {
	if c.IsNumeric() {
		return fmt.Sprintf("command_%d", c.Command())
	}
	return string(c[:])
}

// MarshalJSON implements json.Marshaler for ItemCode.
func (c ItemCode) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", c.String())), nil
}

// ObjectID is an 8-byte in-game object handle.
type ObjectID [8]byte

var groundObject = ObjectID{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// IsGround reports whether the handle is the ground sentinel.
func (o ObjectID) IsGround() bool { return o == groundObject }

func (o ObjectID) String() string {
	if o.IsGround() {
		return "Ground"
	}
	return fmt.Sprintf("Object#%d", binary.LittleEndian.Uint64(o[:]))
}

func readObjectID(b []byte) ObjectID {
	var o ObjectID
	copy(o[:], b[:8])
	return o
}

// simpleAction covers the variants that carry no fields of interest.
type simpleAction struct {
	name string
	apm  bool
}

func (a simpleAction) Name() string { return a.name }
func (a simpleAction) APM() bool    { return a.apm }

// fixed builds a decoder for a fixed-size variant with no fields.
func fixed(name string, size int, apm bool) actionDecoder {
	return func(rev formatRevision, block []byte) (Action, int) {
		if len(block) < size {
			return nil, 0
		}
		return simpleAction{name, apm}, size
	}
}

// SetGameSpeed changes the game speed mid-game.
type SetGameSpeed struct {
	Speed GameSpeed `json:"speed"`
}

func (a *SetGameSpeed) Name() string { return "set_speed" }
func (a *SetGameSpeed) APM() bool    { return false }

func decodeSetGameSpeed(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 2 {
		return nil, 0
	}
	return &SetGameSpeed{Speed: GameSpeed(block[1])}, 2
}

// SaveGame starts saving the game under the given name.
type SaveGame struct {
	SaveName string `json:"save_name"`
}

func (a *SaveGame) Name() string { return "save_game" }
func (a *SaveGame) APM() bool    { return false }

func decodeSaveGame(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 2 {
		return nil, 0
	}
	name, i := nullTermString(block[1:])
	if 1+i >= len(block) {
		return nil, 0
	}
	return &SaveGame{SaveName: name}, 1 + i + 1
}

// Ability is an ability or order with no target.
type Ability struct {
	Flags uint16   `json:"flags"`
	Item  ItemCode `json:"item"`
}

func (a *Ability) Name() string { return "ability" }
func (a *Ability) APM() bool    { return true }

// decodeAbilityFields reads the common flags+item prefix shared by the
// targeted ability variants. Returns the consumed size, or 0 when the
// block is too short.
func decodeAbilityFields(rev formatRevision, block []byte, a *Ability) int {
	offset := 1
	if rev.wideAbilityFlags() {
		if len(block) < offset+2+4 {
			return 0
		}
		a.Flags = binary.LittleEndian.Uint16(block[offset:])
		offset += 2
	} else {
		if len(block) < offset+1+4 {
			return 0
		}
		a.Flags = uint16(block[offset])
		offset++
	}
	a.Item = readItemCode(block[offset:])
	offset += 4
	if rev.abilityTrailer() {
		offset += 8
	}
	if len(block) < offset {
		return 0
	}
	return offset
}

func decodeAbility(rev formatRevision, block []byte) (Action, int) {
	a := &Ability{}
	size := decodeAbilityFields(rev, block, a)
	if size == 0 {
		return nil, 0
	}
	return a, size
}

// AbilityPosition is an ability targeted at a map position.
type AbilityPosition struct {
	Ability
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (a *AbilityPosition) Name() string { return "ability_position" }

func decodeAbilityPositionFields(rev formatRevision, block []byte, a *AbilityPosition) int {
	offset := decodeAbilityFields(rev, block, &a.Ability)
	if offset == 0 || len(block) < offset+8 {
		return 0
	}
	a.X = math.Float32frombits(binary.LittleEndian.Uint32(block[offset:]))
	a.Y = math.Float32frombits(binary.LittleEndian.Uint32(block[offset+4:]))
	return offset + 8
}

func decodeAbilityPosition(rev formatRevision, block []byte) (Action, int) {
	a := &AbilityPosition{}
	size := decodeAbilityPositionFields(rev, block, a)
	if size == 0 {
		return nil, 0
	}
	return a, size
}

// AbilityPositionObject is an ability targeted at an object at a map
// position.
type AbilityPositionObject struct {
	AbilityPosition
	Object ObjectID `json:"object"`
}

func (a *AbilityPositionObject) Name() string { return "ability_object" }

func decodeAbilityPositionObjectFields(rev formatRevision, block []byte, a *AbilityPositionObject) int {
	offset := decodeAbilityPositionFields(rev, block, &a.AbilityPosition)
	if offset == 0 || len(block) < offset+8 {
		return 0
	}
	a.Object = readObjectID(block[offset:])
	return offset + 8
}

func decodeAbilityPositionObject(rev formatRevision, block []byte) (Action, int) {
	a := &AbilityPositionObject{}
	size := decodeAbilityPositionObjectFields(rev, block, a)
	if size == 0 {
		return nil, 0
	}
	return a, size
}

// GiveItem gives or drops an item onto a target object.
type GiveItem struct {
	AbilityPositionObject
	Item2 ObjectID `json:"item_object"`
}

func (a *GiveItem) Name() string { return "give_item" }

func decodeGiveItem(rev formatRevision, block []byte) (Action, int) {
	a := &GiveItem{}
	offset := decodeAbilityPositionObjectFields(rev, block, &a.AbilityPositionObject)
	if offset == 0 || len(block) < offset+8 {
		return nil, 0
	}
	a.Item2 = readObjectID(block[offset:])
	return a, offset + 8
}

// DoubleAbility is an ability with two codes and two target positions.
type DoubleAbility struct {
	AbilityPosition
	Ability2 ItemCode `json:"ability2"`
	X2       float32  `json:"x2"`
	Y2       float32  `json:"y2"`
}

func (a *DoubleAbility) Name() string { return "double_ability" }

func decodeDoubleAbility(rev formatRevision, block []byte) (Action, int) {
	a := &DoubleAbility{}
	offset := decodeAbilityPositionFields(rev, block, &a.AbilityPosition)
	if offset == 0 || len(block) < offset+4+9+8 {
		return nil, 0
	}
	a.Ability2 = readItemCode(block[offset:])
	offset += 4
	offset += 9
	a.X2 = math.Float32frombits(binary.LittleEndian.Uint32(block[offset:]))
	a.Y2 = math.Float32frombits(binary.LittleEndian.Uint32(block[offset+4:]))
	return a, offset + 8
}

// Selection modes for ChangeSelection.
const (
	SelectModeAdd    = 0x01
	SelectModeRemove = 0x02
)

// ChangeSelection adds units to or removes units from the current
// selection. A select immediately following a deselect by the same
// player is one user gesture and is excluded from the APM count by the
// dispatcher.
type ChangeSelection struct {
	Mode    uint8      `json:"mode"`
	Objects []ObjectID `json:"objects"`

	apm bool
}

func (a *ChangeSelection) Name() string { return "select_units" }
func (a *ChangeSelection) APM() bool    { return a.apm }

func decodeChangeSelection(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 4 {
		return nil, 0
	}
	n := int(binary.LittleEndian.Uint16(block[2:]))
	size := 4 + 8*n
	if len(block) < size {
		return nil, 0
	}
	a := &ChangeSelection{Mode: block[1], apm: true}
	for i := 0; i < n; i++ {
		a.Objects = append(a.Objects, readObjectID(block[4+8*i:]))
	}
	return a, size
}

// AssignGroupHotkey assigns the current selection to a numbered group.
type AssignGroupHotkey struct {
	Hotkey  int        `json:"hotkey"`
	Objects []ObjectID `json:"objects"`
}

func (a *AssignGroupHotkey) Name() string { return "assign_group" }
func (a *AssignGroupHotkey) APM() bool    { return true }

func decodeAssignGroupHotkey(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 4 {
		return nil, 0
	}
	n := int(binary.LittleEndian.Uint16(block[2:]))
	size := 4 + 8*n
	if len(block) < size {
		return nil, 0
	}
	a := &AssignGroupHotkey{Hotkey: (int(block[1]) + 1) % 10}
	for i := 0; i < n; i++ {
		a.Objects = append(a.Objects, readObjectID(block[4+8*i:]))
	}
	return a, size
}

// SelectGroupHotkey recalls a numbered group.
type SelectGroupHotkey struct {
	Hotkey int `json:"hotkey"`
}

func (a *SelectGroupHotkey) Name() string { return "select_group" }
func (a *SelectGroupHotkey) APM() bool    { return true }

func decodeSelectGroupHotkey(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 3 {
		return nil, 0
	}
	return &SelectGroupHotkey{Hotkey: (int(block[1]) + 1) % 10}, 3
}

// SelectSubgroup focuses a subgroup of the current selection. Before
// 1.14b the record is a bare subgroup index; later builds carry the
// subgroup's item code and object handle instead.
type SelectSubgroup struct {
	Subgroup uint8    `json:"subgroup,omitempty"`
	Item     ItemCode `json:"item,omitempty"`
	Object   ObjectID `json:"object,omitempty"`

	apm bool
}

func (a *SelectSubgroup) Name() string { return "select_subgroup" }
func (a *SelectSubgroup) APM() bool    { return a.apm }

func decodeSelectSubgroup(rev formatRevision, block []byte) (Action, int) {
	if !rev.extendedSubgroup() {
		if len(block) < 2 {
			return nil, 0
		}
		a := &SelectSubgroup{Subgroup: block[1]}
		a.apm = a.Subgroup != 0x00 && a.Subgroup != 0xFF
		return a, 2
	}
	if len(block) < 13 {
		return nil, 0
	}
	a := &SelectSubgroup{
		Item:   readItemCode(block[1:]),
		Object: readObjectID(block[5:]),
	}
	return a, 13
}

// SelectGroundItem selects an item lying on the ground.
type SelectGroundItem struct {
	Item ObjectID `json:"item"`
}

func (a *SelectGroundItem) Name() string { return "select_item" }
func (a *SelectGroundItem) APM() bool    { return true }

func decodeSelectGroundItem(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 10 {
		return nil, 0
	}
	return &SelectGroundItem{Item: readObjectID(block[2:])}, 10
}

// CancelHeroRevival cancels a hero revival in progress.
type CancelHeroRevival struct {
	Hero ObjectID `json:"hero"`
}

func (a *CancelHeroRevival) Name() string { return "cancel_revival" }
func (a *CancelHeroRevival) APM() bool    { return true }

func decodeCancelHeroRevival(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 9 {
		return nil, 0
	}
	return &CancelHeroRevival{Hero: readObjectID(block[1:])}, 9
}

// RemoveUnitFromQueue removes a queued unit from a building.
type RemoveUnitFromQueue struct {
	Pos  uint8    `json:"pos"`
	Unit ItemCode `json:"unit"`
}

func (a *RemoveUnitFromQueue) Name() string { return "remove_from_queue" }
func (a *RemoveUnitFromQueue) APM() bool    { return true }

func decodeRemoveUnitFromQueue(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 6 {
		return nil, 0
	}
	return &RemoveUnitFromQueue{Pos: block[1], Unit: readItemCode(block[2:])}, 6
}

// Cheat is a single-player cheat code entry. The resource cheats carry
// a biased signed amount, the time cheat a float time of day.
type Cheat struct {
	name      string
	Gold      int32   `json:"gold,omitempty"`
	Lumber    int32   `json:"lumber,omitempty"`
	TimeOfDay float32 `json:"time_of_day,omitempty"`
}

func (a *Cheat) Name() string { return a.name }
func (a *Cheat) APM() bool    { return false }

func cheatFixed(name string, size int) actionDecoder {
	return func(rev formatRevision, block []byte) (Action, int) {
		if len(block) < size {
			return nil, 0
		}
		return &Cheat{name: name}, size
	}
}

// cheatAmount builds a decoder for the resource cheats, whose amount is
// stored offset by 2^31.
func cheatAmount(name string, gold, lumber bool) actionDecoder {
	return func(rev formatRevision, block []byte) (Action, int) {
		if len(block) < 6 {
			return nil, 0
		}
		amount := int32(int64(binary.LittleEndian.Uint32(block[2:])) - (1 << 31))
		a := &Cheat{name: name}
		if gold {
			a.Gold = amount
		}
		if lumber {
			a.Lumber = amount
		}
		return a, 6
	}
}

func decodeDaylightSavings(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 5 {
		return nil, 0
	}
	return &Cheat{
		name:      "daylight_savings",
		TimeOfDay: math.Float32frombits(binary.LittleEndian.Uint32(block[1:])),
	}, 5
}

// ChangeAllyOptions updates the alliance flags toward another player.
type ChangeAllyOptions struct {
	AllyID uint8  `json:"ally_id"`
	Flags  uint32 `json:"flags"`
}

func (a *ChangeAllyOptions) Name() string { return "ally_options" }
func (a *ChangeAllyOptions) APM() bool    { return false }

func decodeChangeAllyOptions(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 6 {
		return nil, 0
	}
	return &ChangeAllyOptions{
		AllyID: block[1],
		Flags:  binary.LittleEndian.Uint32(block[2:]),
	}, 6
}

// TransferResources sends gold and lumber to an ally.
type TransferResources struct {
	AllyID uint8  `json:"ally_id"`
	Gold   uint32 `json:"gold"`
	Lumber uint32 `json:"lumber"`
}

func (a *TransferResources) Name() string { return "transfer_resources" }
func (a *TransferResources) APM() bool    { return false }

func decodeTransferResources(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 10 {
		return nil, 0
	}
	return &TransferResources{
		AllyID: block[1],
		Gold:   binary.LittleEndian.Uint32(block[2:]),
		Lumber: binary.LittleEndian.Uint32(block[6:]),
	}, 10
}

// TriggerChatCommand is a chat message consumed by a map trigger.
type TriggerChatCommand struct {
	Command string `json:"command"`
}

func (a *TriggerChatCommand) Name() string { return "trigger_command" }
func (a *TriggerChatCommand) APM() bool    { return false }

func decodeTriggerChatCommand(rev formatRevision, block []byte) (Action, int) {
	offset := 9
	if len(block) < offset+1 {
		return nil, 0
	}
	cmd, i := nullTermString(block[offset:])
	if offset+i >= len(block) {
		return nil, 0
	}
	return &TriggerChatCommand{Command: cmd}, offset + i + 1
}

func decodeScenarioTrigger(rev formatRevision, block []byte) (Action, int) {
	size := 9
	if rev.wideScenarioTrigger() {
		size = 13
	}
	if len(block) < size {
		return nil, 0
	}
	return simpleAction{"scenario_trigger", false}, size
}

// MinimapSignal pings a map location for allies.
type MinimapSignal struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (a *MinimapSignal) Name() string { return "minimap_ping" }
func (a *MinimapSignal) APM() bool    { return false }

func decodeMinimapSignal(rev formatRevision, block []byte) (Action, int) {
	if len(block) < 13 {
		return nil, 0
	}
	return &MinimapSignal{
		X: math.Float32frombits(binary.LittleEndian.Uint32(block[1:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(block[5:])),
	}, 13
}

// actionTable assembles the opcode dispatch table for one build. The
// base layer is valid across all builds; the two override layers remap
// the opcode groups that shifted at the 1.06 and 1.14b revisions.
func actionTable(rev formatRevision) map[uint8]actionDecoder {
	t := map[uint8]actionDecoder{
		0x01: fixed("pause", 1, false),
		0x02: fixed("resume", 1, false),
		0x03: decodeSetGameSpeed,
		0x04: fixed("increase_speed", 1, false),
		0x05: fixed("decrease_speed", 1, false),
		0x06: decodeSaveGame,
		0x07: fixed("save_finished", 5, false),
		0x10: decodeAbility,
		0x11: decodeAbilityPosition,
		0x12: decodeAbilityPositionObject,
		0x13: decodeGiveItem,
		0x14: decodeDoubleAbility,
		0x16: decodeChangeSelection,
		0x17: decodeAssignGroupHotkey,
		0x18: decodeSelectGroupHotkey,
		0x19: decodeSelectSubgroup,
		0x1A: fixed("pre_subselection", 1, false),
		0x20: cheatFixed("the_dude_abides", 1),
		0x21: fixed("unknown_21", 9, false),
		0x22: cheatFixed("somebody_set_up_us_the_bomb", 1),
		0x23: cheatFixed("warp_ten", 1),
		0x24: cheatFixed("iocaine_powder", 1),
		0x25: cheatFixed("point_break", 1),
		0x26: cheatFixed("whos_your_daddy", 1),
		0x27: cheatAmount("keyser_soze", true, false),
		0x28: cheatAmount("leafit_to_me", false, true),
		0x2A: cheatFixed("strength_and_honor", 1),
		0x2B: cheatFixed("it_vexes_me", 1),
		0x2C: cheatFixed("who_is_john_galt", 1),
		0x2D: cheatAmount("greed_is_good", true, true),
		0x2E: decodeDaylightSavings,
		0x2F: cheatFixed("i_see_dead_people", 1),
		0x30: cheatFixed("synergy", 1),
		0x31: cheatFixed("sharp_and_shiny", 1),
		0x32: cheatFixed("all_your_base_are_belong_to_us", 1),
		0x50: decodeChangeAllyOptions,
		0x51: decodeTransferResources,
		0x60: decodeTriggerChatCommand,
		0x61: fixed("escape", 1, true),
		0x62: decodeScenarioTrigger,
		0x75: fixed("unknown_75", 2, false),
	}

	menuBase := uint8(0x66)
	if rev.legacyMenuOpcodes() {
		menuBase = 0x65
	}
	t[menuBase] = fixed("hero_skill_menu", 1, true)
	t[menuBase+1] = fixed("building_menu", 1, true)
	t[menuBase+2] = decodeMinimapSignal
	t[menuBase+3] = fixed("continue_game_b", 17, false)
	t[menuBase+4] = fixed("continue_game_a", 17, false)

	itemBase := uint8(0x1B)
	if rev.legacyItemOpcodes() {
		itemBase = 0x1A
	}
	t[itemBase] = fixed("sync_selection", 10, false)
	t[itemBase+1] = decodeSelectGroundItem
	t[itemBase+2] = decodeCancelHeroRevival
	t[itemBase+3] = decodeRemoveUnitFromQueue

	return t
}

// dispatchActions decodes the typed actions of one per-player command
// payload and appends them to the event stream. An opcode missing from
// the table, or a variant that cannot fit in the remaining bytes,
// silently ends dispatch for the payload; the caller advances by the
// declared payload length either way.
func (d *streamDecoder) dispatchActions(playerID uint8, block []byte) {
	for len(block) > 0 {
		opcode := block[0]
		decode, ok := d.actions[opcode]
		if !ok {
			d.log.Debug().
				Uint8("player", playerID).
				Uint8("opcode", opcode).
				Int("abandoned", len(block)).
				Msg("uncatalogued action opcode")
			return
		}
		action, size := decode(d.rev, block)
		if action == nil {
			d.log.Debug().
				Uint8("player", playerID).
				Uint8("opcode", opcode).
				Int("abandoned", len(block)).
				Msg("short action payload")
			return
		}

		// A select right after a deselect by the same player is one
		// user gesture; count only the deselect.
		if cs, isSelect := action.(*ChangeSelection); isSelect && cs.Mode == SelectModeAdd {
			if prev, isAction := d.lastEvent().(*ActionEvent); isAction && prev.PlayerID == playerID {
				if pcs, ok := prev.Action.(*ChangeSelection); ok && pcs.Mode == SelectModeRemove {
					cs.apm = false
				}
			}
		}

		d.rep.Events = append(d.rep.Events, &ActionEvent{
			eventTime: eventTime{At: d.clock},
			PlayerID:  playerID,
			Action:    action,
		})
		block = block[size:]
	}
}
