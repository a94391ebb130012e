// Package w3g provides a decoder for Warcraft III replay (.w3g) files.
//
// The package supports both Classic Warcraft III and Reforged replay
// formats, decoding the container header, the compressed block stream,
// the obfuscated startup records and the full in-game action stream.
//
// Basic usage:
//
//	parser := w3g.NewParser()
//	replay, err := parser.Parse("my_replay.w3g")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Game: %s\n", replay.GameName)
//	fmt.Printf("Map: %s\n", replay.MapName)
//	fmt.Printf("Duration: %s\n", w3g.FormatDuration(replay.ClockMs))
//
//	for _, player := range replay.Players {
//	    fmt.Printf("  %s (%s)\n", player.Name, player.Race)
//	}
package w3g

import "fmt"

// Parse is a convenience function to parse a replay file.
func Parse(filepath string) (*Replay, error) {
	return NewParser().Parse(filepath)
}

// ParseHeaderOnly is a convenience function to parse just the header.
func ParseHeaderOnly(filepath string) (*ReplayHeader, error) {
	return NewParser().ParseHeaderOnly(filepath)
}

// FormatDuration formats a millisecond duration as HH:MM:SS or MM:SS.
func FormatDuration(ms uint32) string {
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
