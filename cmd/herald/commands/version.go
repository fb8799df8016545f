package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/herald/internal/version"
)

// VersionCmd prints build identification
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print herald version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("herald", version.Full())
	},
}
