// cmd/replogctl is the CLI entry-point built with Cobra.
//
// Usage:
//
//	replogctl write "hello world"  --wc 2 --server http://localhost:10000
//	replogctl messages list        --server http://localhost:10000
//	replogctl sabotage toggle       --server http://localhost:10001
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"replog/internal/replogclient"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "replogctl",
		Short: "CLI client for the replog replicated message log",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:10000", "replog server address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(writeCmd(), messagesCmd(), sabotageCmd(), clusterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ─── write ────────────────────────────────────────────────────────────────────

func writeCmd() *cobra.Command {
	var wc int
	cmd := &cobra.Command{
		Use:   "write <message>",
		Short: "Submit a message to the master with a given write concern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := replogclient.New(serverAddr, timeout)
			resp, err := c.Write(context.Background(), args[0], wc)
			if err == replogclient.ErrQuorumUnmet {
				fmt.Println("write rejected: quorum not met")
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&wc, "wc", 1, "write concern (number of acks to wait for)")
	return cmd
}

// ─── messages ─────────────────────────────────────────────────────────────────

func messagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Inspect the replicated message log",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every message currently appended",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := replogclient.New(serverAddr, timeout)
			msgs, err := c.Messages(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(msgs)
			return nil
		},
	})
	return cmd
}

// ─── sabotage ─────────────────────────────────────────────────────────────────

func sabotageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sabotage",
		Short: "Control a secondary's sabotage test hook",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip the sabotage flag on the targeted secondary",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := replogclient.New(serverAddr, timeout)
			on, err := c.ToggleSabotage(context.Background())
			if err != nil {
				return err
			}
			fmt.Println("sabotage now: " + strconv.FormatBool(on))
			return nil
		},
	})
	return cmd
}

// ─── cluster ──────────────────────────────────────────────────────────────────

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Inspect the master's active membership set",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "nodes",
		Short: "List the master's currently active secondaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := replogclient.New(serverAddr, timeout)
			nodes, err := c.ClusterNodes(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(nodes)
			return nil
		},
	})
	return cmd
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
