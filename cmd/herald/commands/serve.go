package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/herald/internal/version"
	"github.com/teranos/herald/logger"
	"github.com/teranos/herald/server"
)

// ServeCmd runs the MCP tool server over stdio
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the lifecycle operations as MCP tools over stdio",
	Long: `Run herald as a Model Context Protocol server on stdin/stdout.

The server exposes one tool per lifecycle operation (job_start, job_update,
job_wait, job_complete, job_fail). Register it with an MCP client, e.g.:

  {
    "mcpServers": {
      "herald": { "command": "herald", "args": ["serve"] }
    }
  }

Logs go to stderr so stdout stays clean for the protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		mcpServer := server.NewMCPServer(eng, version.Version, logger.Named("mcp"))
		return mcpServer.ServeStdio()
	},
}
