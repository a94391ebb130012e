package w3g

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDecoder builds a stream decoder for dispatch tests.
func newTestDecoder(build uint16) *streamDecoder {
	rev := formatRevision(build)
	return &streamDecoder{
		rep:     &Replay{},
		rev:     rev,
		actions: actionTable(rev),
	}
}

func (d *streamDecoder) actionEvents() []*ActionEvent {
	var out []*ActionEvent
	for _, e := range d.rep.Events {
		if ae, ok := e.(*ActionEvent); ok {
			out = append(out, ae)
		}
	}
	return out
}

// abilityPayload serializes an ability action for the given build.
func abilityPayload(build uint16, item string) []byte {
	rev := formatRevision(build)
	out := []byte{0x10}
	if rev.wideAbilityFlags() {
		out = append(out, 0x00, 0x00)
	} else {
		out = append(out, 0x00)
	}
	out = append(out, item[3], item[2], item[1], item[0])
	if rev.abilityTrailer() {
		out = append(out, make([]byte, 8)...)
	}
	return out
}

func selectionPayload(mode uint8, objects int) []byte {
	out := []byte{0x16, mode}
	out = binary.LittleEndian.AppendUint16(out, uint16(objects))
	for i := 0; i < objects; i++ {
		out = append(out, byte(i+1), 0, 0, 0, byte(i+1), 0, 0, 0)
	}
	return out
}

func TestDispatchAbilitySizes(t *testing.T) {
	tests := []struct {
		build uint16
		size  int
	}{
		{Build1_06, 6},  // byte flags, no trailer
		{Build1_07, 14}, // byte flags, 8-byte trailer
		{Build1_13, 15}, // word flags, 8-byte trailer
		{6059, 15},
	}
	for _, tt := range tests {
		payload := abilityPayload(tt.build, "hpea")
		require.Len(t, payload, tt.size)

		d := newTestDecoder(tt.build)
		d.dispatchActions(1, payload)

		events := d.actionEvents()
		require.Len(t, events, 1, "build %d", tt.build)
		ability, ok := events[0].Action.(*Ability)
		require.True(t, ok)
		assert.Equal(t, "hpea", ability.Item.String(), "code must be un-reversed")
		assert.True(t, ability.APM())
	}
}

func TestDispatchNumericItemCode(t *testing.T) {
	payload := []byte{0x10, 0x00, 0x00, 0x03, 0x00, 0x0D, 0x00}
	payload = append(payload, make([]byte, 8)...)

	d := newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events := d.actionEvents()
	require.Len(t, events, 1)
	item := events[0].Action.(*Ability).Item
	assert.True(t, item.IsNumeric())
	assert.Equal(t, uint16(3), item.Command())
	assert.Equal(t, "command_3", item.String())
}

func TestDispatchMultipleActions(t *testing.T) {
	var payload []byte
	payload = append(payload, abilityPayload(6059, "hfoo")...)
	payload = append(payload, 0x18, 0x00, 0x00) // select group 1
	payload = append(payload, 0x01)             // pause

	d := newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events := d.actionEvents()
	require.Len(t, events, 3)
	assert.Equal(t, "ability", events[0].Action.Name())
	assert.Equal(t, "select_group", events[1].Action.Name())
	assert.Equal(t, 1, events[1].Action.(*SelectGroupHotkey).Hotkey)
	assert.Equal(t, "pause", events[2].Action.Name())
}

func TestDispatchUnknownOpcodeAbandons(t *testing.T) {
	var payload []byte
	payload = append(payload, 0x01)
	payload = append(payload, 0x29) // never catalogued
	payload = append(payload, abilityPayload(6059, "hfoo")...)

	d := newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events := d.actionEvents()
	require.Len(t, events, 1, "dispatch must stop at the unknown opcode")
	assert.Equal(t, "pause", events[0].Action.Name())
}

func TestDispatchShortPayloadAbandons(t *testing.T) {
	payload := abilityPayload(6059, "hfoo")
	d := newTestDecoder(6059)
	d.dispatchActions(1, payload[:len(payload)-2])
	assert.Empty(t, d.rep.Events)
}

func TestDispatchMenuOpcodeShift(t *testing.T) {
	// The submenu group sits at 0x65 through 1.06 and 0x66 after.
	d := newTestDecoder(Build1_06)
	d.dispatchActions(1, []byte{0x65})
	events := d.actionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "hero_skill_menu", events[0].Action.Name())

	d = newTestDecoder(Build1_07)
	d.dispatchActions(1, []byte{0x66})
	events = d.actionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "hero_skill_menu", events[0].Action.Name())
}

func TestDispatchItemOpcodeShift(t *testing.T) {
	// select_item sits one opcode lower through 1.14b.
	payload := make([]byte, 10)
	payload[0] = 0x1B
	d := newTestDecoder(Build1_14B)
	d.dispatchActions(1, payload)
	events := d.actionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "select_item", events[0].Action.Name())

	payload[0] = 0x1C
	d = newTestDecoder(6059)
	d.dispatchActions(1, payload)
	events = d.actionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "select_item", events[0].Action.Name())
}

func TestDispatchMinimapSignal(t *testing.T) {
	payload := make([]byte, 13)
	payload[0] = 0x68
	binary.LittleEndian.PutUint32(payload[1:], 0x42C80000) // 100.0
	binary.LittleEndian.PutUint32(payload[5:], 0x43480000) // 200.0

	d := newTestDecoder(6059)
	d.dispatchActions(2, payload)

	events := d.actionEvents()
	require.Len(t, events, 1)
	signal := events[0].Action.(*MinimapSignal)
	assert.Equal(t, float32(100), signal.X)
	assert.Equal(t, float32(200), signal.Y)
	assert.False(t, signal.APM())
}

func TestDispatchSelectionPairExcludedFromAPM(t *testing.T) {
	var payload []byte
	payload = append(payload, selectionPayload(SelectModeRemove, 1)...)
	payload = append(payload, selectionPayload(SelectModeAdd, 2)...)

	d := newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events := d.actionEvents()
	require.Len(t, events, 2)
	assert.True(t, events[0].CountsAPM(), "deselect counts")
	assert.False(t, events[1].CountsAPM(), "paired reselect does not")

	sel := events[1].Action.(*ChangeSelection)
	require.Len(t, sel.Objects, 2)
	assert.NotEqual(t, sel.Objects[0], sel.Objects[1])
}

func TestDispatchSelectionPairDifferentPlayers(t *testing.T) {
	d := newTestDecoder(6059)
	d.dispatchActions(1, selectionPayload(SelectModeRemove, 1))
	d.dispatchActions(2, selectionPayload(SelectModeAdd, 1))

	events := d.actionEvents()
	require.Len(t, events, 2)
	assert.True(t, events[1].CountsAPM(), "exclusion only applies within one player")
}

func TestDispatchSubgroupVariants(t *testing.T) {
	// Legacy form: a bare subgroup byte; 0x00 and 0xFF do not count
	// toward APM.
	d := newTestDecoder(Build1_13)
	d.dispatchActions(1, []byte{0x19, 0x02})
	d.dispatchActions(1, []byte{0x19, 0xFF})

	events := d.actionEvents()
	require.Len(t, events, 2)
	assert.True(t, events[0].CountsAPM())
	assert.False(t, events[1].CountsAPM())

	// Extended form carries an item code and object handle.
	payload := []byte{0x19}
	payload = append(payload, 'o', 'e', 'p', 'o')
	payload = append(payload, make([]byte, 8)...)
	d = newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events = d.actionEvents()
	require.Len(t, events, 1)
	sg := events[0].Action.(*SelectSubgroup)
	assert.Equal(t, "opeo", sg.Item.String())
	assert.False(t, sg.APM())
}

func TestDispatchResourceCheat(t *testing.T) {
	payload := []byte{0x27, 0x00}
	payload = binary.LittleEndian.AppendUint32(payload, 1<<31+500)

	d := newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events := d.actionEvents()
	require.Len(t, events, 1)
	cheat := events[0].Action.(*Cheat)
	assert.Equal(t, "keyser_soze", cheat.Name())
	assert.Equal(t, int32(500), cheat.Gold)
	assert.False(t, cheat.APM())
}

func TestDispatchTriggerChatCommand(t *testing.T) {
	payload := make([]byte, 9)
	payload[0] = 0x60
	payload = append(payload, "-ma"...)
	payload = append(payload, 0)

	d := newTestDecoder(6059)
	d.dispatchActions(1, payload)

	events := d.actionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "-ma", events[0].Action.(*TriggerChatCommand).Command)
}

func TestDispatchScenarioTriggerWidth(t *testing.T) {
	block := make([]byte, 9)
	block[0] = 0x62

	// Nine bytes suffice through 1.06.
	d := newTestDecoder(Build1_06)
	d.dispatchActions(1, block)
	require.Len(t, d.actionEvents(), 1)

	// Thirteen bytes from 1.07 on: a 9-byte block comes up short.
	d = newTestDecoder(Build1_07)
	d.dispatchActions(1, block)
	assert.Empty(t, d.actionEvents())
}

func TestActionTableOmitsUnusedOpcodes(t *testing.T) {
	for _, build := range []uint16{Build1_06, Build1_07, Build1_13, Build1_14B, 6059} {
		table := actionTable(formatRevision(build))
		_, ok := table[0x29]
		assert.False(t, ok, "0x29 must stay uncatalogued for build %d", build)
	}
}

func TestReadItemCode(t *testing.T) {
	code := readItemCode([]byte{'o', 'e', 'p', 'o'})
	assert.Equal(t, "opeo", code.String())
	assert.False(t, code.IsNumeric())

	numeric := readItemCode([]byte{0x07, 0x00, 0x0D, 0x00})
	assert.True(t, numeric.IsNumeric())
	assert.Equal(t, uint16(7), numeric.Command())
}

func TestObjectID(t *testing.T) {
	ground := readObjectID([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	assert.True(t, ground.IsGround())
	assert.Equal(t, "Ground", ground.String())

	obj := readObjectID([]byte{0x2A, 0, 0, 0, 0, 0, 0, 0})
	assert.False(t, obj.IsGround())
	assert.Equal(t, "Object#42", obj.String())
}
