package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/salesrelay/salesrelay/internal/config"
	"github.com/salesrelay/salesrelay/internal/store"
	"github.com/salesrelay/salesrelay/internal/timeline"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ SalesRelay Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 SalesRelay Status")
		fmt.Printf("Version: %s\n", version)

		cfgPath, _ := config.ConfigPath()
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Println("Config:   " + color.GreenString("✓") + " Found (" + cfgPath + ")")
		} else {
			fmt.Println("Config:   " + color.RedString("✗") + " Not found (defaults in effect)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:   " + color.RedString("✗") + " Unable to load: " + err.Error())
			return
		}

		if cfg.Channels.Slack.Enabled && cfg.Channels.Slack.BotToken != "" {
			fmt.Println("Slack:    " + color.GreenString("✓") + " Enabled")
		} else {
			fmt.Println("Slack:    " + color.RedString("✗") + " Disabled")
		}
		if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.BotToken != "" {
			fmt.Println("Telegram: " + color.GreenString("✓") + " Enabled")
		} else {
			fmt.Println("Telegram: " + color.RedString("✗") + " Disabled")
		}
		if cfg.Provider.APIKey != "" {
			fmt.Println("Provider: " + color.GreenString("✓") + " API key found (generative mode)")
		} else {
			fmt.Println("Provider: " + color.YellowString("–") + " No API key (template mode)")
		}

		st, err := store.New(cfg.Paths.DataDir, nil)
		if err != nil {
			fmt.Println("Data:     " + color.RedString("✗") + " " + err.Error())
			return
		}
		kb, err := st.Knowledge()
		if err != nil {
			fmt.Println("KB:       " + color.RedString("✗") + " " + err.Error())
		} else if kb.Meta.Configured {
			fmt.Printf("KB:       %s %d case studies, %d positioning, %d objections\n",
				color.GreenString("✓"), len(kb.CaseStudies), len(kb.Positioning), len(kb.Objections))
		} else {
			fmt.Println("KB:       " + color.RedString("✗") + " Not configured (deliveries blocked)")
		}
		if dir, err := st.Directory(); err == nil {
			fmt.Printf("Reps:     %d registered\n", len(dir.Reps))
		}

		if tl, err := timeline.New(filepath.Join(cfg.Paths.DataDir, "timeline.db")); err == nil {
			defer tl.Close()
			if counts, err := tl.Counts(); err == nil && len(counts) > 0 {
				fmt.Println("Events:")
				for kind, n := range counts {
					fmt.Printf("  %-20s %d\n", kind, n)
				}
			}
		}

		fmt.Println("Status:   Ready")
	},
}
