package w3g

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeftGameResultRemote(t *testing.T) {
	want := map[uint32]string{
		0x01: "left",
		0x07: "left",
		0x08: "lost",
		0x09: "won",
		0x0A: "draw",
		0x0B: "left",
		0x0D: "left",
		0xFF: "left", // unknown codes degrade
	}
	for code, result := range want {
		e := &LeftGame{ClosedBy: ClosedByRemote, ResultCode: code}
		assert.Equal(t, result, e.Result(), "remote code 0x%02X", code)
	}
}

func TestLeftGameResultLocalInterim(t *testing.T) {
	next := &LeftGame{}
	want := map[uint32]string{
		0x01: "disconnected",
		0x07: "lost",
		0x08: "lost",
		0x09: "won",
		0x0A: "draw",
		0x0B: "lost",
		0xFF: "left",
	}
	for code, result := range want {
		e := &LeftGame{ClosedBy: ClosedByLocal, ResultCode: code, Next: next}
		assert.Equal(t, result, e.Result(), "local interim code 0x%02X", code)
	}
}

func TestLeftGameResultLocalTerminal(t *testing.T) {
	want := map[uint32]string{
		0x01: "disconnected",
		0x08: "lost",
		0x09: "won",
		0xFF: "left",
	}
	for code, result := range want {
		e := &LeftGame{ClosedBy: ClosedByLocal, ResultCode: code}
		assert.Equal(t, result, e.Result(), "local terminal code 0x%02X", code)
	}
}

func TestLeftGameResultLocalTerminalAmbiguous(t *testing.T) {
	// Codes 0x07 and 0x0B of a terminal local leave flip on whether the
	// result was inconclusive.
	for _, code := range []uint32{0x07, 0x0B} {
		e := &LeftGame{ClosedBy: ClosedByLocal, ResultCode: code, Inconclusive: true}
		assert.Equal(t, "won", e.Result())

		e = &LeftGame{ClosedBy: ClosedByLocal, ResultCode: code}
		assert.Equal(t, "lost", e.Result())
	}
}

func TestLeftGameResultUnknownSource(t *testing.T) {
	e := &LeftGame{ClosedBy: ClosedByUnknown, ResultCode: 0x09}
	assert.Equal(t, "left", e.Result(), "unattributed closes carry no result")
}

func TestCloseSourceString(t *testing.T) {
	assert.Equal(t, "remote", ClosedByRemote.String())
	assert.Equal(t, "local", ClosedByLocal.String())
	assert.Equal(t, "unknown", ClosedByUnknown.String())
}

func TestStrTime(t *testing.T) {
	assert.Equal(t, "00.500", strTime(500))
	assert.Equal(t, "59.000", strTime(59000))
	assert.Equal(t, "01:05.250", strTime(65250))
	assert.Equal(t, "01:00:01.000", strTime(3601000))
}
