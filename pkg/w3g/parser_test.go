package w3g

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leaveBlock serializes a leave-game block.
func leaveBlock(reason uint32, playerID uint8, result, counter uint32) []byte {
	out := []byte{BlockLeaveGame}
	out = binary.LittleEndian.AppendUint32(out, reason)
	out = append(out, playerID)
	out = binary.LittleEndian.AppendUint32(out, result)
	return binary.LittleEndian.AppendUint32(out, counter)
}

// commandBlock serializes one per-player command payload.
func commandBlock(playerID uint8, payload []byte) []byte {
	out := []byte{playerID}
	out = binary.LittleEndian.AppendUint16(out, uint16(len(payload)))
	return append(out, payload...)
}

// timeSlot serializes a time slot holding the given command blocks.
func timeSlot(dt uint16, commands ...[]byte) []byte {
	var inner []byte
	for _, c := range commands {
		inner = append(inner, c...)
	}
	out := []byte{BlockTimeSlot}
	out = binary.LittleEndian.AppendUint16(out, uint16(2+len(inner)))
	out = binary.LittleEndian.AppendUint16(out, dt)
	return append(out, inner...)
}

// chatBlock serializes an in-game chat block addressed to mode.
func chatBlock(playerID uint8, mode uint32, message string) []byte {
	out := []byte{BlockChat, playerID}
	out = binary.LittleEndian.AppendUint16(out, uint16(1+4+len(message)+1))
	out = append(out, ChatFlagNormal)
	out = binary.LittleEndian.AppendUint32(out, mode)
	out = append(out, message...)
	return append(out, 0)
}

// lobbyChatBlock serializes a pre-game chat block.
func lobbyChatBlock(playerID uint8, message string) []byte {
	out := []byte{BlockChat, playerID}
	out = binary.LittleEndian.AppendUint16(out, uint16(1+len(message)+1))
	out = append(out, ChatFlagStartup)
	out = append(out, message...)
	return append(out, 0)
}

func countdownBlock(running bool, secs uint32) []byte {
	out := []byte{BlockCountdown}
	mode := uint32(1)
	if running {
		mode = 0
	}
	out = binary.LittleEndian.AppendUint32(out, mode)
	return binary.LittleEndian.AppendUint32(out, secs)
}

// buildReplayFile wraps a logical stream into a complete classic
// replay file: header plus one deflate block.
func buildReplayFile(t *testing.T, build uint16, logical []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(logical)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	file := headerBytes(1, GameIDTFT, 26, build, FlagMultiplayer, 1)
	binary.LittleEndian.PutUint32(file[0x28:], uint32(len(logical)))
	return append(file, frameBlock(buf.Bytes(), len(logical), false)...)
}

func TestParseStreamEndToEnd(t *testing.T) {
	var stream []byte
	stream = append(stream, buildStartup(twoPlayerStartup())...)
	stream = append(stream, lobbyChatBlock(2, "glhf")...)
	stream = append(stream, timeSlot(250,
		commandBlock(1, abilityPayload(6059, "hpea")),
		commandBlock(2, abilityPayload(6059, "opeo")),
	)...)
	stream = append(stream, timeSlot(250)...)
	stream = append(stream, chatBlock(2, 0x00, "gg")...)
	stream = append(stream, leaveBlock(0x0C, 2, 0x08, 1)...)
	stream = append(stream, countdownBlock(false, 0)...)
	stream = append(stream, leaveBlock(0x0C, 1, 0x09, 2)...)
	stream = append(stream, BlockEnd)

	rep, err := NewParser().ParseStream(bytes.NewReader(buildReplayFile(t, 6059, stream)))
	require.NoError(t, err)

	assert.Equal(t, uint32(500), rep.ClockMs)
	require.Len(t, rep.Players, 2)
	assert.Equal(t, "(2)TerenasStand.w3m", rep.MapName)

	var chats []*Chat
	var actions []*ActionEvent
	var leaves []*LeftGame
	for _, e := range rep.Events {
		switch v := e.(type) {
		case *Chat:
			chats = append(chats, v)
		case *ActionEvent:
			actions = append(actions, v)
		case *LeftGame:
			leaves = append(leaves, v)
		}
	}

	require.Len(t, chats, 2)
	assert.Equal(t, "startup", chats[0].Mode)
	assert.Equal(t, "glhf", chats[0].Message)
	assert.Equal(t, "all", chats[1].Mode)

	require.Len(t, actions, 2)
	assert.Equal(t, uint32(0), actions[0].Time(), "clock advances after the slot")
	assert.Equal(t, uint8(1), actions[0].PlayerID)
	assert.Equal(t, uint8(2), actions[1].PlayerID)

	require.Len(t, leaves, 2)
	assert.Equal(t, ClosedByLocal, leaves[0].ClosedBy)
	assert.Same(t, leaves[1], leaves[0].Next)
	assert.Nil(t, leaves[1].Next)
	assert.False(t, leaves[0].Inconclusive, "first leave is never inconclusive")
	assert.True(t, leaves[1].Inconclusive, "two players left means inconclusive")
	assert.Equal(t, "lost", leaves[0].Result())
	assert.Equal(t, "won", leaves[1].Result())

	winner, err := rep.Winner()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), winner)
	assert.Equal(t, "HostPlayer", rep.PlayerName(winner))
}

func TestParseStreamChatModes(t *testing.T) {
	var stream []byte
	stream = append(stream, buildStartup(twoPlayerStartup())...)
	stream = append(stream, chatBlock(1, 0x00, "to all")...)
	stream = append(stream, chatBlock(1, 0x01, "to allies")...)
	stream = append(stream, chatBlock(1, 0x02, "to observers")...)
	stream = append(stream, chatBlock(1, 0x05, "psst")...)
	stream = append(stream, BlockEnd)

	rep, err := NewParser().ParseStream(bytes.NewReader(buildReplayFile(t, 6059, stream)))
	require.NoError(t, err)

	var modes []string
	for _, e := range rep.Events {
		if c, ok := e.(*Chat); ok {
			modes = append(modes, c.Mode)
		}
	}
	assert.Equal(t, []string{"all", "allies", "observers", "player2"}, modes)
}

func TestParseStreamSkippedBlocks(t *testing.T) {
	var stream []byte
	stream = append(stream, buildStartup(twoPlayerStartup())...)
	stream = append(stream, append([]byte{BlockFirstStart}, make([]byte, 4)...)...)
	stream = append(stream, append([]byte{BlockSecondStart}, make([]byte, 4)...)...)
	stream = append(stream, append([]byte{BlockThirdStart}, make([]byte, 4)...)...)
	stream = append(stream, append([]byte{BlockChecksum}, make([]byte, 5)...)...)
	stream = append(stream, append([]byte{BlockUnknown23}, make([]byte, 10)...)...)
	stream = append(stream, timeSlot(100)...)
	stream = append(stream, BlockEnd)

	rep, err := NewParser().ParseStream(bytes.NewReader(buildReplayFile(t, 6059, stream)))
	require.NoError(t, err)
	assert.Equal(t, uint32(100), rep.ClockMs)
}

func TestParseStreamUnknownBlockFatal(t *testing.T) {
	var stream []byte
	stream = append(stream, buildStartup(twoPlayerStartup())...)
	stream = append(stream, 0x42)

	_, err := NewParser().ParseStream(bytes.NewReader(buildReplayFile(t, 6059, stream)))
	var unknown *UnknownBlockError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint8(0x42), unknown.BlockID)
}

func TestParseStreamTruncatedBlock(t *testing.T) {
	var stream []byte
	stream = append(stream, buildStartup(twoPlayerStartup())...)
	stream = append(stream, leaveBlock(0x0C, 2, 0x08, 1)[:7]...)

	_, err := NewParser().ParseStream(bytes.NewReader(buildReplayFile(t, 6059, stream)))
	var truncated *TruncatedDataError
	assert.ErrorAs(t, err, &truncated)
}

func TestParseStreamEndsWithoutZeroTag(t *testing.T) {
	var stream []byte
	stream = append(stream, buildStartup(twoPlayerStartup())...)
	stream = append(stream, timeSlot(100)...)

	rep, err := NewParser().ParseStream(bytes.NewReader(buildReplayFile(t, 6059, stream)))
	require.NoError(t, err)
	assert.Equal(t, uint32(100), rep.ClockMs)
}

// contestedReplay builds a replay with indexed slots for winner tests.
func contestedReplay(events ...Event) *Replay {
	rep := &Replay{
		Players: []*Player{
			{ID: 1, Name: "Alpha", Race: RaceHuman},
			{ID: 2, Name: "Beta", Race: RaceOrc},
		},
		Slots: []*SlotRecord{
			{PlayerID: 1, Team: 0, Race: RaceHuman},
			{PlayerID: 2, Team: 1, Race: RaceOrc},
			{PlayerID: 3, Team: ObserverTeamClassic},
		},
		Events: events,
	}
	rep.buildIndexes()
	return rep
}

func TestWinnerExplicitWin(t *testing.T) {
	rep := contestedReplay(
		&LeftGame{PlayerID: 2, ClosedBy: ClosedByLocal, ResultCode: 0x08, Next: &LeftGame{}},
		&LeftGame{PlayerID: 1, ClosedBy: ClosedByLocal, ResultCode: 0x09},
	)
	winner, err := rep.Winner()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), winner)
}

func TestWinnerFromLoss(t *testing.T) {
	rep := contestedReplay(
		&LeftGame{PlayerID: 1, ClosedBy: ClosedByLocal, ResultCode: 0x08},
	)
	winner, err := rep.Winner()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), winner, "the other contestant wins")
}

func TestWinnerFromConcessionChat(t *testing.T) {
	rep := contestedReplay(
		&Chat{PlayerID: 2, Mode: "all", Message: "gg"},
		&LeftGame{PlayerID: 2, ClosedBy: ClosedByRemote, ResultCode: 0x01},
	)
	winner, err := rep.Winner()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), winner)
}

func TestWinnerExplicitResultOutranksLaterConcession(t *testing.T) {
	// Player 1's explicit loss decides the game even though player 2
	// concedes and leaves afterwards.
	rep := contestedReplay(
		&LeftGame{PlayerID: 1, ClosedBy: ClosedByLocal, ResultCode: 0x08},
		&Chat{PlayerID: 2, Mode: "all", Message: "gg"},
		&LeftGame{PlayerID: 2, ClosedBy: ClosedByRemote, ResultCode: 0x01},
	)
	winner, err := rep.Winner()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), winner)
}

func TestWinnerIgnoresObserverLoss(t *testing.T) {
	rep := contestedReplay(
		&LeftGame{PlayerID: 3, ClosedBy: ClosedByLocal, ResultCode: 0x08},
	)
	_, err := rep.Winner()
	var indeterminate *WinnerIndeterminateError
	assert.ErrorAs(t, err, &indeterminate)
}

func TestWinnerLastLeaverFallback(t *testing.T) {
	// Plain departures without concession chat fall through to the
	// last non-observer leaver.
	rep := contestedReplay(
		&LeftGame{PlayerID: 1, ClosedBy: ClosedByRemote, ResultCode: 0x01},
		&LeftGame{PlayerID: 3, ClosedBy: ClosedByRemote, ResultCode: 0x01},
	)
	winner, err := rep.Winner()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), winner, "observers never win")
}

func TestWinnerFallbackSkipsEmptySlotLeaver(t *testing.T) {
	rep := contestedReplay(
		&LeftGame{PlayerID: 0, ClosedBy: ClosedByRemote, ResultCode: 0x01},
	)
	rep.Slots = append(rep.Slots, &SlotRecord{PlayerID: 0, Team: 0})
	rep.buildIndexes()
	_, err := rep.Winner()
	var indeterminate *WinnerIndeterminateError
	assert.ErrorAs(t, err, &indeterminate)
}

func TestWinnerIndeterminate(t *testing.T) {
	rep := contestedReplay()
	_, err := rep.Winner()
	var indeterminate *WinnerIndeterminateError
	assert.ErrorAs(t, err, &indeterminate)
}

func TestReplayPlayerFacts(t *testing.T) {
	rep := contestedReplay()

	p, err := rep.Player(1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", p.Name)

	// Slot-only participants resolve through the slot table.
	p, err = rep.Player(3)
	require.NoError(t, err)
	assert.Equal(t, "observer", p.Name)

	_, err = rep.Player(9)
	var notFound *PlayerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, uint8(9), notFound.PlayerID)

	assert.Equal(t, "unknown", rep.PlayerName(9))
}

// stubNames resolves every code to one fixed race.
type stubNames struct{ race string }

func (s stubNames) LookupItem(code ItemCode) (string, bool) { return "", false }
func (s stubNames) LookupCommand(cmd uint16) (string, bool) { return "", false }
func (s stubNames) RaceOf(code ItemCode) (string, bool) {
	if code.IsNumeric() {
		return "", false
	}
	return s.race, true
}

func TestPlayerRaceFromSlot(t *testing.T) {
	rep := contestedReplay()
	race, err := rep.PlayerRace(2)
	require.NoError(t, err)
	assert.Equal(t, RaceOrc, race)
	assert.False(t, rep.IsRandomRace(2))
}

func TestPlayerRaceInferredForRandom(t *testing.T) {
	rep := contestedReplay(
		&ActionEvent{PlayerID: 1, Action: &Ability{Item: readItemCode([]byte{'o', 'e', 'p', 'o'})}},
	)
	rep.Players[0].Race = RaceRandom
	rep.Slots[0].Race = RaceRandom
	rep.names = stubNames{race: "orc"}

	race, err := rep.PlayerRace(1)
	require.NoError(t, err)
	assert.Equal(t, RaceOrc, race)
	assert.True(t, rep.IsRandomRace(1))
}

func TestPlayerRaceScanBoundedToOpeningEvents(t *testing.T) {
	// The race-revealing action sits just past the scanned window, so
	// the lobby value stands.
	events := make([]Event, 0, raceActionScanLimit+1)
	for i := 0; i < raceActionScanLimit; i++ {
		events = append(events, &Chat{PlayerID: 2, Mode: "all", Message: "glhf"})
	}
	events = append(events, &ActionEvent{PlayerID: 1, Action: &Ability{Item: readItemCode([]byte{'o', 'e', 'p', 'o'})}})

	rep := contestedReplay(events...)
	rep.Players[0].Race = RaceRandom
	rep.Slots[0].Race = RaceRandom
	rep.names = stubNames{race: "orc"}

	race, err := rep.PlayerRace(1)
	require.NoError(t, err)
	assert.Equal(t, RaceRandom, race)
}

func TestPlayerRaceInferenceNeedsNames(t *testing.T) {
	rep := contestedReplay(
		&ActionEvent{PlayerID: 1, Action: &Ability{Item: readItemCode([]byte{'o', 'e', 'p', 'o'})}},
	)
	rep.Players[0].Race = RaceRandom

	race, err := rep.PlayerRace(1)
	require.NoError(t, err)
	assert.Equal(t, RaceRandom, race, "without a name table the slot value stands")
}
