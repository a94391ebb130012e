// Package analytics derives activity statistics from a decoded replay:
// actions-per-minute rates, per-action tallies and cumulative activity
// series suitable for charting.
package analytics

import (
	"sort"

	"github.com/condor/w3g-decoder/pkg/w3g"
)

// APM returns actions-per-minute per player, counting only actions that
// represent deliberate player input.
func APM(rep *w3g.Replay) map[uint8]float64 {
	counts := make(map[uint8]int)
	for _, e := range rep.Events {
		if ae, ok := e.(*w3g.ActionEvent); ok && ae.CountsAPM() {
			counts[ae.PlayerID]++
		}
	}

	minutes := float64(rep.ClockMs) / 60000.0
	apm := make(map[uint8]float64, len(counts))
	for pid, n := range counts {
		if minutes > 0 {
			apm[pid] = float64(n) / minutes
		}
	}
	return apm
}

// ActionCounts tallies actions by name for each player.
func ActionCounts(rep *w3g.Replay) map[uint8]map[string]int {
	out := make(map[uint8]map[string]int)
	for _, e := range rep.Events {
		ae, ok := e.(*w3g.ActionEvent)
		if !ok {
			continue
		}
		byName := out[ae.PlayerID]
		if byName == nil {
			byName = make(map[string]int)
			out[ae.PlayerID] = byName
		}
		byName[ae.Action.Name()]++
	}
	return out
}

// Point is one sample of a cumulative activity series.
type Point struct {
	TimeMs uint32 `json:"t"`
	Count  int    `json:"n"`
}

// Series is one player's cumulative action count over game time.
type Series struct {
	PlayerID uint8   `json:"player_id"`
	Points   []Point `json:"points"`
}

// Timeseries builds cumulative activity series per player, ordered by
// player id. Players with a single sample carry no trend and are
// dropped.
func Timeseries(rep *w3g.Replay) []Series {
	byPlayer := make(map[uint8][]Point)
	running := make(map[uint8]int)
	for _, e := range rep.Events {
		ae, ok := e.(*w3g.ActionEvent)
		if !ok || !ae.CountsAPM() {
			continue
		}
		running[ae.PlayerID]++
		byPlayer[ae.PlayerID] = append(byPlayer[ae.PlayerID], Point{
			TimeMs: ae.Time(),
			Count:  running[ae.PlayerID],
		})
	}

	out := make([]Series, 0, len(byPlayer))
	for pid, points := range byPlayer {
		if len(points) < 2 {
			continue
		}
		out = append(out, Series{PlayerID: pid, Points: points})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Grid sampling defaults. FixedGrid always spans two hours so grids
// from different replays line up cell for cell.
const (
	DefaultGridStepMs     = 1000
	DefaultGridDurationMs = 2 * 60 * 60 * 1000
)

// Grid resamples each player's cumulative activity onto a uniform time
// grid of stepMs intervals spanning the whole game, padding the tail of
// each series with its last value. All returned slices share the same
// length.
func Grid(rep *w3g.Replay, stepMs uint32) map[uint8][]int {
	if stepMs == 0 {
		stepMs = DefaultGridStepMs
	}
	return gridOver(rep, stepMs, rep.ClockMs)
}

// FixedGrid resamples onto the fixed two-hour grid at one-second steps.
func FixedGrid(rep *w3g.Replay) map[uint8][]int {
	return gridOver(rep, DefaultGridStepMs, DefaultGridDurationMs)
}

func gridOver(rep *w3g.Replay, stepMs, durMs uint32) map[uint8][]int {
	steps := int(durMs/stepMs) + 1

	out := make(map[uint8][]int)
	for _, s := range Timeseries(rep) {
		cells := make([]int, steps)
		next := 0
		last := 0
		for i := 0; i < steps; i++ {
			cutoff := uint32(i) * stepMs
			for next < len(s.Points) && s.Points[next].TimeMs <= cutoff {
				last = s.Points[next].Count
				next++
			}
			cells[i] = last
		}
		out[s.PlayerID] = cells
	}
	return out
}
