package w3g

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NameTable resolves 4-byte object/ability codes and numeric command
// codes to display names. It is consulted for rendering and for the
// race-inference heuristic only, never for decoding control flow.
type NameTable interface {
	LookupItem(code ItemCode) (string, bool)
	LookupCommand(cmd uint16) (string, bool)
	RaceOf(code ItemCode) (string, bool)
}

// Parser is the main W3G replay parser.
type Parser struct {
	names NameTable
	log   zerolog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithNameTable sets the name lookup service used by derived queries.
func WithNameTable(nt NameTable) Option {
	return func(p *Parser) { p.names = nt }
}

// WithLogger replaces the parser's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// NewParser creates a new parser instance.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		log: log.With().Str("component", "w3g").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses a complete replay file.
func (p *Parser) Parse(filepath string) (*Replay, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	// Blocks start at the header's declared data offset.
	if _, err := f.Seek(int64(header.HeaderSize), io.SeekStart); err != nil {
		return nil, err
	}

	decompressed, err := decompressBlocks(f, header)
	if err != nil {
		return nil, err
	}

	return p.decodeGame(header, decompressed)
}

// ParseStream parses a replay from an io.Reader whose blocks directly
// follow the header.
func (p *Parser) ParseStream(r io.Reader) (*Replay, error) {
	header, err := parseHeader(r)
	if err != nil {
		return nil, err
	}

	decompressed, err := decompressBlocks(r, header)
	if err != nil {
		return nil, err
	}

	return p.decodeGame(header, decompressed)
}

// ParseBytes decodes a replay already loaded into memory.
func (p *Parser) ParseBytes(data []byte) (*Replay, error) {
	return p.ParseStream(bytes.NewReader(data))
}

// ParseHeaderOnly parses just the header (for quick metadata access).
func (p *Parser) ParseHeaderOnly(filepath string) (*ReplayHeader, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseHeader(f)
}

// streamDecoder is the explicit decoding context threaded through the
// top-level block loop: current offset, running clock, and the last
// leave event seen (for the inconclusive computation and next-linking).
type streamDecoder struct {
	rep      *Replay
	rev      formatRevision
	data     []byte
	offset   int
	clock    uint32
	lastLeft *LeftGame
	actions  map[uint8]actionDecoder
	log      zerolog.Logger
}

func (d *streamDecoder) lastEvent() Event {
	if len(d.rep.Events) == 0 {
		return nil
	}
	return d.rep.Events[len(d.rep.Events)-1]
}

// remaining returns the unread slice, erroring when fewer than want
// bytes are left.
func (d *streamDecoder) remaining(want int) ([]byte, error) {
	if d.offset+want > len(d.data) {
		return nil, newTruncatedDataError(
			fmt.Sprintf("block truncated: need %d bytes", want), d.offset,
		)
	}
	return d.data[d.offset:], nil
}

// decodeGame decodes the logical decompressed stream: startup records
// first, then the time-ordered block stream.
func (p *Parser) decodeGame(header *ReplayHeader, data []byte) (*Replay, error) {
	rep := &Replay{
		Header: header,
		names:  p.names,
	}

	offset, err := parseStartup(data, rep)
	if err != nil {
		return nil, err
	}

	d := &streamDecoder{
		rep:     rep,
		rev:     header.revision(),
		data:    data,
		offset:  offset,
		actions: actionTable(header.revision()),
		log:     p.log,
	}
	if err := d.run(); err != nil {
		return nil, err
	}

	rep.ClockMs = d.clock
	rep.buildIndexes()
	return rep, nil
}

// run executes the top-level block loop. A zero tag or the end of the
// stream terminates; an unrecognized tag is fatal since the top-level
// framing must always be understood.
func (d *streamDecoder) run() error {
	for d.offset < len(d.data) {
		blockID := d.data[d.offset]
		if blockID == BlockEnd {
			return nil
		}

		var (
			consumed int
			err      error
		)
		switch blockID {
		case BlockLeaveGame:
			consumed, err = d.parseLeaveGame()
		case BlockFirstStart, BlockSecondStart, BlockThirdStart:
			consumed = 5
		case BlockTimeSlotOld, BlockTimeSlot:
			consumed, err = d.parseTimeSlot()
		case BlockChat:
			consumed, err = d.parseChat()
		case BlockChecksum:
			consumed = 6
		case BlockUnknown23:
			consumed = 11
		case BlockCountdown:
			consumed, err = d.parseCountdown()
		default:
			return newUnknownBlockError(blockID, d.offset)
		}
		if err != nil {
			return err
		}
		if d.offset+consumed > len(d.data) {
			return newTruncatedDataError("block ran off stream", d.offset)
		}
		d.offset += consumed
	}
	return nil
}

// parseLeaveGame decodes a leave-game block: reason, player, result
// code and a monotonic counter (14 bytes total).
func (d *streamDecoder) parseLeaveGame() (int, error) {
	data, err := d.remaining(14)
	if err != nil {
		return 0, err
	}
	reason := binary.LittleEndian.Uint32(data[1:])
	playerID := data[5]
	result := binary.LittleEndian.Uint32(data[6:])
	counter := binary.LittleEndian.Uint32(data[10:])

	inc := false
	switch {
	case d.lastLeft == nil:
		inc = false
	case len(d.rep.Players) <= 2:
		inc = true
	default:
		inc = counter == d.lastLeft.Counter+1
	}

	closedBy := ClosedByUnknown
	switch reason {
	case 0x01:
		closedBy = ClosedByRemote
	case 0x0C:
		closedBy = ClosedByLocal
	}

	e := &LeftGame{
		eventTime:    eventTime{At: d.clock},
		PlayerID:     playerID,
		Reason:       reason,
		ClosedBy:     closedBy,
		ResultCode:   result,
		Inconclusive: inc,
		Counter:      counter,
	}
	d.rep.Events = append(d.rep.Events, e)
	if d.lastLeft != nil {
		d.lastLeft.Next = e
	}
	d.lastLeft = e
	return 14, nil
}

// parseTimeSlot decodes one time slot: a declared byte length, a time
// delta, and a run of per-player command payloads. The declared payload
// lengths are trusted over whatever the action dispatcher consumes. The
// clock advances only after the slot's payloads are dispatched.
func (d *streamDecoder) parseTimeSlot() (int, error) {
	data, err := d.remaining(5)
	if err != nil {
		return 0, err
	}
	n := int(binary.LittleEndian.Uint16(data[1:]))
	if n < 2 {
		return 0, newMalformedRecordError("time slot shorter than its delta", d.offset)
	}
	dt := binary.LittleEndian.Uint16(data[3:])
	if _, err := d.remaining(n + 3); err != nil {
		return 0, err
	}

	cmd := data[5 : n+3]
	for len(cmd) > 0 {
		if len(cmd) < 3 {
			return 0, newTruncatedDataError("command block header truncated", d.offset)
		}
		playerID := cmd[0]
		payloadLen := int(binary.LittleEndian.Uint16(cmd[1:]))
		if 3+payloadLen > len(cmd) {
			return 0, newTruncatedDataError("command block payload truncated", d.offset)
		}
		d.dispatchActions(playerID, cmd[3:3+payloadLen])
		cmd = cmd[3+payloadLen:]
	}

	d.clock += uint32(dt)
	return n + 3, nil
}

// parseChat decodes a chat block. Flag 0x10 marks a pre-game lobby
// message; any other flag is followed by a 4-byte audience selector.
func (d *streamDecoder) parseChat() (int, error) {
	data, err := d.remaining(5)
	if err != nil {
		return 0, err
	}
	playerID := data[1]
	n := int(binary.LittleEndian.Uint16(data[2:]))
	flags := data[4]

	var mode string
	msgStart := 5
	if flags == ChatFlagStartup {
		mode = "startup"
	} else {
		if _, err := d.remaining(9); err != nil {
			return 0, err
		}
		m := binary.LittleEndian.Uint32(data[5:])
		var ok bool
		mode, ok = chatModes[m]
		if !ok {
			mode = fmt.Sprintf("player%d", m-0x3)
		}
		msgStart = 9
	}
	if _, err := d.remaining(n + 4); err != nil {
		return 0, err
	}
	msg, _ := nullTermString(data[msgStart:])

	d.rep.Events = append(d.rep.Events, &Chat{
		eventTime: eventTime{At: d.clock},
		PlayerID:  playerID,
		Mode:      mode,
		Message:   msg,
	})
	return n + 4, nil
}

// parseCountdown decodes the end-of-game countdown block (9 bytes).
func (d *streamDecoder) parseCountdown() (int, error) {
	data, err := d.remaining(9)
	if err != nil {
		return 0, err
	}
	mode := "over"
	if binary.LittleEndian.Uint32(data[1:]) == 0 {
		mode = "running"
	}
	secs := binary.LittleEndian.Uint32(data[5:])
	d.rep.Events = append(d.rep.Events, &Countdown{
		eventTime: eventTime{At: d.clock},
		Mode:      mode,
		Secs:      secs,
	})
	d.log.Debug().Str("mode", mode).Uint32("secs", secs).Msg("countdown block")
	return 9, nil
}
