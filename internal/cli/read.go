package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
	"github.com/charliek/eventlook/internal/session"
	"github.com/charliek/eventlook/internal/tui"
)

func newReadCmd(g *globalOptions) *cobra.Command {
	var (
		o          readOptions
		limit      int
		jsonOutput bool
		remote     bool
	)
	cmd := &cobra.Command{
		Use:   "read <channel|file>",
		Short: "Read events from a channel or an archive",
		Long: `Read events from a channel or, with --file, an archive file.

Events are read in batches; Ctrl+C cancels the read and prints what was
read so far.

Examples:
  eventlook read System --since 2h --level error,critical
  eventlook read Application -f '"access denied" | timeout' --id "-4625"
  eventlook read ./saved.jsonl --file --oldest-first --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			params, err := o.params(args[0], cfg, time.Now())
			if err != nil {
				return err
			}
			printer := NewLogPrinter(cmd.OutOrStdout(), jsonOutput)

			if remote {
				return runRemoteRead(NewClient(g.apiAddress()), params, limit, printer, cmd.ErrOrStderr())
			}

			logger := g.logger(cmd.ErrOrStderr())
			store := newStore(cfg, logger)
			if err := probeSource(store, params.Source); err != nil {
				return err
			}

			sess := session.New(session.Config{MaxEvents: cfg.Read.MaxEvents, NewestFirst: params.NewestFirst}, logger)
			if err := sess.ApplyCriteria(filter.CriteriaFromParams(params)); err != nil {
				return err
			}
			svc := reader.New(store, logger)
			stop := cancelOnInterrupt(svc)
			defer stop()

			sess.Begin(params.Source, false)
			svc.ReadEvents(context.Background(), params.Source, params.From, params.To, params.NewestFirst, sess.HistorySink())

			snap := sess.Snapshot()
			view, _ := filter.SelectLimit(snap.View, limit)
			for _, item := range view {
				printer.Print(item)
			}
			return readResult(cmd.ErrOrStderr(), snap, len(view))
		},
	}
	addReadFlags(cmd, &o)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most this many events (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON lines")
	cmd.Flags().BoolVar(&remote, "remote", false, "Read through a running eventlook server")
	return cmd
}

// probeSource checks a source before reading it
func probeSource(store *eventlog.Store, source domain.LogSource) error {
	if source.IsChannel() {
		return store.ChannelConfig(source.Path)
	}
	return store.ArchiveInfo(source.Path)
}

// cancelOnInterrupt cancels the service's read on Ctrl+C or SIGTERM.
// The returned func stops listening.
func cancelOnInterrupt(svc *reader.Service) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			svc.Cancel()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// readResult reports how a read ended. A cancelled read keeps its partial
// results and is not an error.
func readResult(stderr io.Writer, snap session.Snapshot, printed int) error {
	st := snap.Status
	if printed < len(snap.View) || len(snap.View) < snap.Total {
		fmt.Fprintf(stderr, "(showing %d of %d matching, %d read)\n", printed, len(snap.View), snap.Total)
	}
	switch {
	case st.Error == "":
		return nil
	case st.Error == domain.ErrCancelled.Error():
		fmt.Fprintf(stderr, "read cancelled after %d events\n", st.Read)
		return nil
	default:
		return errors.New(st.Error)
	}
}

func runRemoteRead(client *Client, params domain.ReadParams, limit int, printer *LogPrinter, stderr io.Writer) error {
	resp, err := client.GetEvents(params, limit)
	if err != nil {
		return err
	}
	for _, e := range resp.Events {
		printer.PrintAPI(e)
	}
	if len(resp.Events) < resp.FilteredCount || resp.FilteredCount < resp.TotalCount {
		fmt.Fprintf(stderr, "(showing %d of %d matching, %d read)\n", len(resp.Events), resp.FilteredCount, resp.TotalCount)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func newTailCmd(g *globalOptions) *cobra.Command {
	var (
		o          filterOptions
		lines      int
		jsonOutput bool
		remote     bool
	)
	cmd := &cobra.Command{
		Use:   "tail <channel>",
		Short: "Print events as they are appended to a channel",
		Long: `Print events as they are appended to a channel until Ctrl+C.

Examples:
  eventlook tail System --level error,critical
  eventlook tail Security -n 20 --id 4625`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			criteria, err := o.criteria()
			if err != nil {
				return err
			}
			criteria = withDefaults(criteria, cfg.Filters)
			printer := NewLogPrinter(cmd.OutOrStdout(), jsonOutput)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if remote {
				return NewClient(g.apiAddress()).StreamEvents(ctx, args[0], criteria, lines, printer.PrintAPI)
			}
			return runTail(ctx, newStore(cfg, g.logger(cmd.ErrOrStderr())), args[0], criteria, lines, printer, cmd.ErrOrStderr())
		},
	}
	addFilterFlags(cmd, &o)
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Print this many recent events first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON lines")
	cmd.Flags().BoolVar(&remote, "remote", false, "Follow through a running eventlook server")
	return cmd
}

// runTail prints matching live events of channel until ctx is done
func runTail(ctx context.Context, store *eventlog.Store, channel string, criteria filter.Criteria, lines int, printer *LogPrinter, stderr io.Writer) error {
	source := domain.NewChannelSource(channel)
	if err := probeSource(store, source); err != nil {
		return err
	}
	filters, err := criteria.Filters()
	if err != nil {
		return err
	}

	svc := reader.New(store, nil)
	if lines > 0 {
		recent := &reader.Collector{}
		svc.ReadEvents(ctx, source, time.Time{}, time.Time{}, true, recent)
		matched, _ := filter.SelectLimit(recent.Events(), lines, filters...)
		for i := len(matched) - 1; i >= 0; i-- {
			printer.Print(matched[i])
		}
	}

	sink := reader.SinkFunc(func(info domain.ProgressInfo) {
		if info.HasError() {
			fmt.Fprintf(stderr, "live: %s\n", info.ErrorMessage)
			return
		}
		for _, item := range filter.Select(info.Events, filters...) {
			printer.Print(item)
		}
	})
	if !svc.SubscribeEvents(source, sink) {
		return fmt.Errorf("%w: cannot follow %s", domain.ErrProviderFault, channel)
	}
	defer svc.UnsubscribeEvents()

	select {
	case <-ctx.Done():
		return nil
	case <-svc.SubscriptionDone():
		return fmt.Errorf("%w: stopped following %s", domain.ErrSourceNotFound, channel)
	}
}

func newViewCmd(g *globalOptions) *cobra.Command {
	var (
		o    readOptions
		tail bool
	)
	cmd := &cobra.Command{
		Use:   "view <channel|file>",
		Short: "Browse events in the interactive viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			params, err := o.params(args[0], cfg, time.Now())
			if err != nil {
				return err
			}

			// The viewer owns the terminal
			logger := g.logger(io.Discard)
			store := newStore(cfg, logger)
			if err := probeSource(store, params.Source); err != nil {
				return err
			}

			opts := tui.Options{
				Source:      params.Source,
				Range:       cfg.ReadRange(),
				NewestFirst: params.NewestFirst,
				MaxEvents:   cfg.Read.MaxEvents,
				Criteria:    filter.CriteriaFromParams(params),
				Tail:        tail,
			}
			// An explicit range is kept on reload; --since slides like the default
			if o.from != "" || o.to != "" {
				opts.From, opts.To = params.From, params.To
			} else if o.since > 0 {
				opts.Range = o.since
			}
			return tui.Run(reader.New(store, logger), opts, logger)
		},
	}
	addReadFlags(cmd, &o)
	cmd.Flags().BoolVarP(&tail, "tail", "t", false, "Add live events after the read")
	return cmd
}
