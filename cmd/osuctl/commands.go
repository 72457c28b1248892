package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"osu-tracker/internal/api"
	"osu-tracker/internal/config"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/events"
	"osu-tracker/internal/render"
	"osu-tracker/internal/repository"
	"osu-tracker/internal/service"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what a command needs; it is built lazily so --help works
// without a reachable store.
type app struct {
	cfg       *config.Config
	store     repository.Store
	publisher events.Publisher
	stats     *service.StatService
	profiles  *service.ProfileService
}

func (a *app) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func openApp(ctx context.Context, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	pub, err := events.New(cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := api.NewStatsClient(cfg)
	return &app{
		cfg:       cfg,
		store:     store,
		publisher: pub,
		stats:     service.NewStatService(client, store, render.New(cfg, log), pub, cfg, log),
		profiles:  service.NewProfileService(client, store, cfg, log),
	}, nil
}

func newRootCmd(log zerolog.Logger) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "osuctl",
		Short:         "Operate the osu stat tracker store directly",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = openApp(cmd.Context(), log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	var (
		mode int
		days int
	)
	addModeFlag := func(cmd *cobra.Command) {
		cmd.Flags().IntVarP(&mode, "mode", "m", 0, "game mode (0 osu, 1 taiko, 2 catch, 3 mania)")
	}
	addDaysFlag := func(cmd *cobra.Command) {
		cmd.Flags().IntVarP(&days, "days", "d", 0, "compare with the snapshot from this many days ago")
	}

	bindCmd := &cobra.Command{
		Use:   "bind <chat-user-id> <nickname>",
		Short: "Bind a chat user to a game account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.profiles.Bind(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bound %s to account %d\n", args[0], id)
			return nil
		},
	}

	unbindCmd := &cobra.Command{
		Use:   "unbind <chat-user-id>",
		Short: "Remove a binding and its whole history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.profiles.Unbind(cmd.Context(), args[0])
		},
	}

	profileCmd := &cobra.Command{
		Use:   "profile <chat-user-id>",
		Short: "Show a binding and its cosmetics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profiles.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p.History = nil
			return printJSON(cmd.OutOrStdout(), p)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <chat-user-id>",
		Short: "List stored snapshots of one mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := a.stats.History(cmd.Context(), args[0], domain.Mode(mode))
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), snaps)
		},
	}
	addModeFlag(historyCmd)

	baselineCmd := &cobra.Command{
		Use:   "baseline <chat-user-id>",
		Short: "Show the stored snapshot a card would compare against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.stats.Baseline(cmd.Context(), args[0], domain.Mode(mode), days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	addModeFlag(baselineCmd)
	addDaysFlag(baselineCmd)

	var argsOnly bool
	cardCmd := &cobra.Command{
		Use:   "card <chat-user-id>",
		Short: "Fetch current stats, store them and print the render request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.stats.Card(cmd.Context(), args[0], domain.Mode(mode), days)
			if err != nil {
				return err
			}
			if argsOnly {
				for _, arg := range render.FormatArgs(res.Request.Args()) {
					fmt.Fprintln(cmd.OutOrStdout(), arg)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	addModeFlag(cardCmd)
	addDaysFlag(cardCmd)
	cardCmd.Flags().BoolVar(&argsOnly, "args", false, "print the positional renderer arguments, one per line")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot <chat-user-id>",
		Short: "Fetch and store all four modes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := a.stats.SnapshotAllModes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), snaps)
		},
	}

	root.AddCommand(bindCmd, unbindCmd, profileCmd, historyCmd, baselineCmd, cardCmd, snapshotCmd)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHistory(w io.Writer, snaps []domain.StatSnapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tMODE\tPLAYCOUNT\tPP\tACCURACY\tRANK\tHITS")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f%%\t%d\t%d\n",
			s.CreatedAt.Local().Format(time.DateTime), s.Mode, s.Playcount, s.PP, s.Accuracy*100, s.GlobalRank, s.TotalHits())
	}
	return tw.Flush()
}
