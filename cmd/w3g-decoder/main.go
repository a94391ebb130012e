// Command w3g-decoder inspects Warcraft III replay files.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/condor/w3g-decoder/pkg/analytics"
	"github.com/condor/w3g-decoder/pkg/names"
	"github.com/condor/w3g-decoder/pkg/w3g"
)

var debug bool

func main() {
	root := &cobra.Command{
		Use:   "w3g-decoder",
		Short: "Decode Warcraft III replay (.w3g) files",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(infoCmd(), eventsCmd(), apmCmd(), winnerCmd(), jsonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseReplay(path string) (*w3g.Replay, error) {
	parser := w3g.NewParser(w3g.WithNameTable(names.Standard()))
	return parser.Parse(path)
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <replay.w3g>",
		Short: "Print game metadata and the lobby layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := parseReplay(args[0])
			if err != nil {
				return err
			}

			h := rep.Header
			fmt.Printf("Game:     %s\n", rep.GameName)
			fmt.Printf("Map:      %s\n", rep.MapName)
			fmt.Printf("Creator:  %s\n", rep.CreatorName)
			fmt.Printf("Version:  %s (build %d)\n", h.VersionString(), h.BuildNumber)
			fmt.Printf("Duration: %s\n", w3g.FormatDuration(rep.ClockMs))
			fmt.Printf("Type:     %s\n", rep.GameType)
			fmt.Printf("Teams:    %s\n", rep.SelectModeName())
			if h.IsReforged() {
				fmt.Println("Client:   Reforged")
			}

			fmt.Println("\nPlayers:")
			for _, s := range rep.Slots {
				if s.PlayerID == 0 {
					continue
				}
				race, _ := rep.PlayerRace(s.PlayerID)
				tag := ""
				if rep.IsRandomRace(s.PlayerID) {
					tag = " (random)"
				}
				fmt.Printf("  [%2d] %-20s team %-2d %-10s %s%s\n",
					s.PlayerID, rep.PlayerName(s.PlayerID), s.Team, s.ColorName(), race, tag)
			}
			return nil
		},
	}
}

func eventsCmd() *cobra.Command {
	var actions bool
	cmd := &cobra.Command{
		Use:   "events <replay.w3g>",
		Short: "Print the chat, leave and countdown timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := parseReplay(args[0])
			if err != nil {
				return err
			}
			for _, e := range rep.Events {
				if _, isAction := e.(*w3g.ActionEvent); isAction && !actions {
					continue
				}
				fmt.Println(e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&actions, "actions", false, "include per-player game actions")
	return cmd
}

func apmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apm <replay.w3g>",
		Short: "Print actions-per-minute per player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := parseReplay(args[0])
			if err != nil {
				return err
			}
			apm := analytics.APM(rep)
			ids := make([]uint8, 0, len(apm))
			for pid := range apm {
				ids = append(ids, pid)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, pid := range ids {
				fmt.Printf("%-20s %6.1f\n", rep.PlayerName(pid), apm[pid])
			}
			return nil
		},
	}
}

func winnerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "winner <replay.w3g>",
		Short: "Guess the winning player from the end of the replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := parseReplay(args[0])
			if err != nil {
				return err
			}
			pid, err := rep.Winner()
			if err != nil {
				return err
			}
			fmt.Printf("%s (player %d)\n", rep.PlayerName(pid), pid)
			return nil
		},
	}
}

func jsonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "json <replay.w3g>",
		Short: "Dump the decoded replay as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := parseReplay(args[0])
			if err != nil {
				return err
			}
			out, err := rep.ToJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
