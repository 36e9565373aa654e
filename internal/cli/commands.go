package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running eventlook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := NewClient(g.apiAddress()).GetStatus()
			if err != nil {
				return fmt.Errorf("%w\nIs eventlook running? Try 'eventlook serve -d' first", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return json.NewEncoder(out).Encode(status)
			}

			fmt.Fprintf(out, "Status:   %s\n", status.Status)
			fmt.Fprintf(out, "Uptime:   %s\n", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
			fmt.Fprintf(out, "Log root: %s\n", status.LogRoot)
			if status.ConfigFile != "" {
				fmt.Fprintf(out, "Config:   %s\n", status.ConfigFile)
			}
			if len(status.Hubs) == 0 {
				fmt.Fprintln(out, "No live channels")
				return nil
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tSUBSCRIBERS\tBUFFERED\tRECEIVED\tFAULTS\tLAST ERROR")
			fmt.Fprintln(w, "-------\t-----------\t--------\t--------\t------\t----------")
			for _, h := range status.Hubs {
				fmt.Fprintf(w, "%s\t%d\t%d/%d\t%d\t%d\t%s\n",
					h.Channel, h.Subscribers, h.Buffered, h.Capacity, h.Received, h.Faults, h.LastError)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	return cmd
}

func newStopCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running eventlook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewClient(g.apiAddress()).Shutdown(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Shutdown initiated")
			return nil
		},
	}
}

// formatDuration formats an uptime
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
