package w3g

import (
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Extra-data tags of the player record.
const playerExtraLadder = 0x08

// parsePlayerRecord parses one variable-length player record from the
// front of data.
//
// Layout:
//   - 1 byte: Record ID (0x00 for host, 0x16 for additional)
//   - 1 byte: Player ID
//   - n bytes: Player name (null-terminated)
//   - 1 byte: extra data size tag (0x08 for ladder, anything else is a
//     skip count for custom games)
//   - ladder only: 4 bytes runtime + 4 bytes race flag
func parsePlayerRecord(data []byte) (*Player, error) {
	if len(data) < 4 {
		return nil, newTruncatedDataError("player record truncated", 0)
	}
	p := &Player{
		IsHost: data[0] == RecordHost,
		ID:     data[1],
	}
	name, i := nullTermString(data[2:])
	if 2+i >= len(data) {
		return nil, newTruncatedDataError("player name unterminated", 2)
	}
	p.Name = name
	n := 2 + i + 1

	if n >= len(data) {
		return nil, newTruncatedDataError("player record truncated", n)
	}
	extra := data[n]
	n++
	if extra != playerExtraLadder {
		// Custom game: the tag is a byte count to skip.
		n += int(extra)
		if n > len(data) {
			return nil, newTruncatedDataError("player record truncated", n)
		}
		p.Race = RaceNone
	} else {
		if n+8 > len(data) {
			return nil, newTruncatedDataError("ladder player record truncated", n)
		}
		p.RuntimeMs = binary.LittleEndian.Uint32(data[n:])
		n += 4
		p.Race = raceFromFlag(binary.LittleEndian.Uint32(data[n:]))
		n += 4
	}
	p.Size = n
	p.Raw = data[:n]
	return p, nil
}

// parseReforgedMetadata parses one Reforged player metadata record: a
// total length, an id, then length-prefixed name, clan and portrait.
func parseReforgedMetadata(data []byte) (*ReforgedPlayerMetadata, error) {
	if len(data) < 5 {
		return nil, newTruncatedDataError("reforged metadata truncated", 0)
	}
	m := &ReforgedPlayerMetadata{Size: int(data[0])}
	n := 2
	m.ID = data[n]
	n += 2

	for _, field := range []*string{&m.Name, &m.Clan, &m.Portrait} {
		if n >= len(data) {
			return nil, newTruncatedDataError("reforged metadata truncated", n)
		}
		fieldLen := int(data[n])
		n++
		if n+fieldLen > len(data) {
			return nil, newTruncatedDataError("reforged metadata field truncated", n)
		}
		*field = string(data[n : n+fieldLen])
		n += fieldLen + 1
	}
	n-- // no separator after the last field

	if m.Size > len(data) {
		return nil, newTruncatedDataError("reforged metadata size out of range", 0)
	}
	m.Raw = data[:m.Size]
	return m, nil
}

// parseSlotRecord parses one fixed-width slot record. AI strength and
// handicap are only present when the computed width allows.
func parseSlotRecord(data []byte) *SlotRecord {
	s := &SlotRecord{
		PlayerID: data[0],
		Status:   SlotStatus(data[2]),
		IsHuman:  data[3] == 0x00,
		Team:     data[4],
		Color:    data[5],
		Race:     raceFromFlag(uint32(data[6] & 0x3F)),
		AI:       AIStrength(0x01),
		Handicap: 100,
		Raw:      data,
		Size:     len(data),
	}
	if len(data) >= 8 {
		s.AI = AIStrength(data[7])
	}
	if len(data) >= 9 {
		s.Handicap = data[8]
	}
	return s
}

// maxMetadataAttempts bounds the Reforged metadata scan so a malformed
// file cannot loop forever looking for the slot table marker.
const maxMetadataAttempts = 24

// parseStartup decodes the startup records at the front of the logical
// stream into rep and returns the offset where the action stream
// begins.
func parseStartup(data []byte, rep *Replay) (int, error) {
	offset := 4 // first four bytes have unknown meaning
	if len(data) < offset {
		return 0, newTruncatedDataError("startup block truncated", 0)
	}

	host, err := parsePlayerRecord(data[offset:])
	if err != nil {
		return 0, err
	}
	rep.Players = append(rep.Players, host)
	offset += host.Size

	gameName, i := nullTermString(data[offset:])
	rep.GameName = gameName
	offset += i + 1
	offset++ // extra null byte after the game name

	if offset >= len(data) {
		return 0, newTruncatedDataError("startup block truncated", offset)
	}
	decoded, consumed := blizDecompress(data[offset:])
	offset += consumed
	settings, mapName, creatorName, err := parseEncodedSettings(decoded)
	if err != nil {
		return 0, err
	}
	rep.Settings = settings
	rep.MapName = mapName
	rep.CreatorName = creatorName

	if offset+12 > len(data) {
		return 0, newTruncatedDataError("startup block truncated", offset)
	}
	rep.PlayerCount = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	rep.GameType = GameType(data[offset])
	offset++
	priv := data[offset]
	offset++
	rep.IsPublic = priv == PrivacyPublic
	rep.IsPrivate = priv == PrivacyPrivate
	offset += 2 // buffer space
	rep.LanguageID = append([]byte(nil), data[offset:offset+4]...)
	offset += 4

	for offset < len(data) && data[offset] == RecordAdditionalPlayer {
		p, err := parsePlayerRecord(data[offset:])
		if err != nil {
			return 0, err
		}
		rep.Players = append(rep.Players, p)
		offset += p.Size
		offset += 4 // unknown padding after each player record
	}

	if offset >= len(data) {
		return 0, newTruncatedDataError("startup block truncated", offset)
	}
	if data[offset] != BlockGameStart {
		// Reforged files carry player metadata between the player list
		// and the slot table.
		offset += 12
		for attempts := 0; attempts < maxMetadataAttempts; attempts++ {
			if offset >= len(data) {
				return 0, newTruncatedDataError("metadata scan ran off stream", offset)
			}
			if data[offset] == BlockGameStart {
				break
			}
			offset++
			m, err := parseReforgedMetadata(data[offset:])
			if err != nil {
				return 0, err
			}
			rep.ReforgedMetadata = append(rep.ReforgedMetadata, m)
			offset += m.Size + 1
		}
	}

	if offset >= len(data) || data[offset] != BlockGameStart {
		return 0, newMalformedRecordError("slot table marker not found", offset)
	}
	offset++
	if offset+3 > len(data) {
		return 0, newTruncatedDataError("slot table header truncated", offset)
	}
	nStartBytes := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	nRecs := int(data[offset])
	offset++

	if nRecs == 0 {
		return 0, newMalformedRecordError("slot table declares zero records", offset)
	}
	recBytes := nStartBytes - 4 - 3
	recSize := recBytes / nRecs
	if recBytes%nRecs != 0 || recSize < 7 || recSize > 9 {
		return 0, newMalformedRecordError(
			fmt.Sprintf("slot record width %d/%d out of bounds", recBytes, nRecs), offset,
		)
	}
	if offset+recSize*nRecs > len(data) {
		return 0, newTruncatedDataError("slot table truncated", offset)
	}
	for n := 0; n < nRecs; n++ {
		rec := parseSlotRecord(data[offset+n*recSize : offset+(n+1)*recSize])
		rep.Slots = append(rep.Slots, rec)
	}
	offset += recSize * nRecs

	if offset+6 > len(data) {
		return 0, newTruncatedDataError("startup trailer truncated", offset)
	}
	rep.RandomSeed = append([]byte(nil), data[offset:offset+4]...)
	offset += 4
	rep.SelectMode = data[offset]
	if _, ok := selectModeNames[rep.SelectMode]; !ok {
		log.Debug().Uint8("select_mode", rep.SelectMode).Msg("unrecognized select mode")
	}
	offset++
	rep.StartPositions = data[offset]
	offset++
	return offset, nil
}
