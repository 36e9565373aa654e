package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/reader"
)

func newChannelsCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		remote     bool
	)
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the channels of the log root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var channels []string
			if remote {
				resp, err := NewClient(g.apiAddress()).GetChannels()
				if err != nil {
					return err
				}
				channels = resp.Channels
			} else {
				cfg, _, err := g.loadConfig()
				if err != nil {
					return err
				}
				if channels, err = newStore(cfg, g.logger(cmd.ErrOrStderr())).Channels(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if channels == nil {
					channels = []string{}
				}
				return json.NewEncoder(out).Encode(channels)
			}
			for _, name := range channels {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print a JSON array")
	cmd.Flags().BoolVar(&remote, "remote", false, "List the channels of a running eventlook server")
	return cmd
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	var file bool
	cmd := &cobra.Command{
		Use:   "check <channel|file>",
		Short: "Check that a channel or archive can be read",
		Long: `Check that a channel or, with --file, an archive file can be read.
Exits with status 1 when it cannot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			source := domain.NewChannelSource(args[0])
			if file {
				source = domain.NewFileSource(args[0])
			}

			store := newStore(cfg, g.logger(cmd.ErrOrStderr()))
			if !reader.New(store, nil).IsValidLog(source.Path, source.PathType) {
				// The probe error tells why
				if err := probeSource(store, source); err != nil {
					return fmt.Errorf("%s is not readable: %s", source, domain.UserMessage(err))
				}
				return fmt.Errorf("%s is not readable", source)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&file, "file", false, "Treat the argument as an archive file path")
	return cmd
}

func newComputerCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "computer <archive>",
		Short: "Print the computer name recorded in an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			store := newStore(cfg, g.logger(cmd.ErrOrStderr()))
			name := reader.New(store, nil).ComputerNameFromArchive(args[0])
			if name == "" {
				if err := store.ArchiveInfo(args[0]); err != nil {
					return err
				}
				return fmt.Errorf("no computer name in %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}
