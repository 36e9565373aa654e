package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/eventlook/internal/config"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/eventlog"
	"github.com/charliek/eventlook/internal/filter"
	"github.com/charliek/eventlook/internal/reader"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	var o readOptions
	cmd := &cobra.Command{
		Use:   "export <channel|file> <output>",
		Short: "Save the matching events of a source to an archive",
		Long: `Save the matching events of a channel or archive to a new archive file.
The output format follows its extension: .db, .sqlite and .sqlite3 write
SQLite, anything else JSON lines.

Examples:
  eventlook export System ./system-errors.jsonl --since 24h --level error
  eventlook export Security ./logons.db --id 4624`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			params, err := o.params(args[0], cfg, time.Now())
			if err != nil {
				return err
			}
			filters, err := filter.CriteriaFromParams(params).Filters()
			if err != nil {
				return err
			}

			logger := g.logger(cmd.ErrOrStderr())
			store := newStore(cfg, logger)
			if err := probeSource(store, params.Source); err != nil {
				return err
			}

			svc := reader.New(store, logger)
			stop := cancelOnInterrupt(svc)
			defer stop()

			collected := &reader.Collector{}
			svc.ReadEvents(context.Background(), params.Source, params.From, params.To, params.NewestFirst, collected)
			if terminal, ok := collected.Terminal(); ok && terminal.HasError() {
				// A cancelled export is not written
				return fmt.Errorf("export of %s failed: %s", params.Source, terminal.ErrorMessage)
			}

			matched := filter.Select(collected.Events(), filters...)
			if err := eventlog.WriteArchive(args[1], matched); err != nil {
				return fmt.Errorf("writing %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d of %d events to %s\n", len(matched), len(collected.Events()), args[1])
			return nil
		},
	}
	addReadFlags(cmd, &o)
	return cmd
}

// writeOptions holds the fields of a record written by hand
type writeOptions struct {
	level    string
	eventID  int
	provider string
	computer string
	message  string
	data     []string
}

func newWriteCmd(g *globalOptions) *cobra.Command {
	var o writeOptions
	cmd := &cobra.Command{
		Use:   "write <channel>",
		Short: "Append an event to a channel",
		Long: `Append an event to a channel, creating the channel if needed. Followers
of the channel receive it as a live event.

Message may contain %1..%n markers filled from --data.

Examples:
  eventlook write Application --level warning --id 2013 --provider Srv --message "Disk %1 is at %2%%" --data C:,95`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := args[0]
			if err := config.ValidateChannelName(channel); err != nil {
				return err
			}
			level, ok := domain.ParseLevel(o.level)
			if !ok {
				return fmt.Errorf("%w: unknown level %q", domain.ErrInvalidPattern, o.level)
			}
			computer := o.computer
			if computer == "" {
				computer, _ = os.Hostname()
			}

			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			rec, err := newStore(cfg, g.logger(cmd.ErrOrStderr())).Append(channel, eventlog.Record{
				Level:    int(level),
				EventID:  o.eventID,
				Provider: o.provider,
				Computer: computer,
				Message:  o.message,
				Data:     o.data,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: record %d\n", channel, rec.RecordID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.level, "level", "l", "information", "Event level")
	cmd.Flags().IntVar(&o.eventID, "id", 0, "Event id")
	cmd.Flags().StringVarP(&o.provider, "provider", "p", "eventlook", "Provider name")
	cmd.Flags().StringVar(&o.computer, "computer", "", "Computer name (default: this host)")
	cmd.Flags().StringVarP(&o.message, "message", "m", "", "Message template")
	cmd.Flags().StringSliceVar(&o.data, "data", nil, "Values for %1..%n in the message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
