package w3g

import (
	"encoding/hex"
	"fmt"
)

// blizDecompress undoes the byte-masking scheme used for the settings
// sub-stream inside the startup block.
//
// Every byte at position 0 mod 8 is a mask byte and is not emitted.
// Each following byte is emitted decremented by one when its mask bit is
// clear, unchanged otherwise. Decoding stops at the first raw zero byte.
// Returns the decoded bytes and the number of raw input bytes consumed,
// including the zero terminator.
func blizDecompress(data []byte) ([]byte, int) {
	var decoded []byte
	var mask byte
	pos := 0
	for pos < len(data) && data[pos] != 0 {
		if pos%8 == 0 {
			mask = data[pos]
		} else if mask&(1<<(pos%8)) == 0 {
			decoded = append(decoded, data[pos]-1)
		} else {
			decoded = append(decoded, data[pos])
		}
		pos++
	}
	if pos < len(data) {
		pos++ // zero terminator
	}
	return decoded, pos
}

// parseEncodedSettings decodes the bit-packed game settings from the
// de-obfuscated sub-stream and the two null-terminated strings that
// follow them (map name and creator name).
//
// Settings layout (first 13 bytes):
//   - Byte 0 bits 0-1: game speed
//   - Byte 1 bits 0-3: visibility flags, bits 4-5: observer setting,
//     bit 6: teams together
//   - Byte 2 bits 1-2: fixed teams
//   - Byte 3 bit 0: full shared unit control, bit 1: random hero,
//     bit 2: random races, bit 6: observer referees (bits 3-5 unused)
//   - Bytes 9-12: map checksum
func parseEncodedSettings(decoded []byte) (*GameSettings, string, string, error) {
	if len(decoded) < 13 {
		return nil, "", "", newMalformedRecordError(
			fmt.Sprintf("settings sub-stream too short: %d bytes", len(decoded)), 0,
		)
	}

	vis := decoded[1]
	ctl := decoded[3]
	settings := &GameSettings{
		Speed:                 GameSpeed(decoded[0] & 0x03),
		HideTerrain:           vis&0x01 != 0,
		MapExplored:           vis&0x02 != 0,
		AlwaysVisible:         vis&0x04 != 0,
		DefaultVisibility:     vis&0x08 != 0,
		Observer:              ObserverSetting(vis >> 4 & 0x03),
		TeamsTogether:         vis&0x40 != 0,
		FixedTeams:            FixedTeamsSetting(decoded[2] >> 1 & 0x03),
		FullSharedUnitControl: ctl&0x01 != 0,
		RandomHero:            ctl&0x02 != 0,
		RandomRaces:           ctl&0x04 != 0,
		ObserverReferees:      ctl&0x40 != 0,
		MapChecksum:           hex.EncodeToString(decoded[9:13]),
	}

	mapName, i := nullTermString(decoded[13:])
	creatorName := ""
	if 13+i+1 < len(decoded) {
		creatorName, _ = nullTermString(decoded[13+i+1:])
	}
	return settings, mapName, creatorName, nil
}

// nullTermString returns the string up to the next null byte and the
// index of that null byte. Without a terminator the whole slice is
// returned and the reported index equals its length.
func nullTermString(data []byte) (string, int) {
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), i
		}
	}
	return string(data), len(data)
}
