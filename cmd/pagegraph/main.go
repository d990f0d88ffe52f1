// Package main provides the pagegraph CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagegraph/pagegraph/cmd/pagegraph/client"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "pagegraph",
	Short: "pagegraph is a CLI for the pagegraph content graph server",
	Long: `pagegraph talks to a running pagegraph server.

Paths address the graph the way the server does: a trailing slash is implied
where a command needs a segment, so "pagegraph ls docs" lists the segment
"docs" while "pagegraph cat docs" prints the content bound into it.`,
	SilenceUsage: true,
}

// api builds a client for the configured server.
func api() *client.Client {
	return client.New(serverURL)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("PAGEGRAPH_SERVER"),
		"Server base URL (default http://localhost:18100, or PAGEGRAPH_SERVER)")
}
