package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/salesrelay/salesrelay/internal/cli.version=1.2.3"
	version = "1.4.0"
	logo    = "\n" +
		"  ____        _           ____      _\n" +
		" / ___|  __ _| | ___  ___|  _ \\ ___| | __ _ _   _\n" +
		" \\___ \\ / _` | |/ _ \\/ __| |_) / _ \\ |/ _` | | | |\n" +
		"  ___) | (_| | |  __/\\__ \\  _ <  __/ | (_| | |_| |\n" +
		" |____/ \\__,_|_|\\___||___/_| \\_\\___|_|\\__,_|\\__, |\n" +
		"                                            |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "salesrelay",
	Short: "SalesRelay - Deal-stage enablement router",
	Long:  color.CyanString(logo) + "\nRoutes CRM stage changes into grounded enablement packages for reps.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(repsCmd)
}
