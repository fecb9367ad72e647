package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/salesrelay/salesrelay/internal/identity"
)

var (
	repEmail      string
	repName       string
	repSlackID    string
	repTelegramID string
)

var repsCmd = &cobra.Command{
	Use:   "reps",
	Short: "Manage the rep directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var repsRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register or update a rep",
	RunE:  runRepsRegister,
}

var repsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered reps",
	RunE:  runRepsList,
}

var repsRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove a rep by email",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepsRemove,
}

func init() {
	repsRegisterCmd.Flags().StringVar(&repEmail, "email", "", "Rep email (required)")
	repsRegisterCmd.Flags().StringVar(&repName, "name", "", "Display name")
	repsRegisterCmd.Flags().StringVar(&repSlackID, "slack-id", "", "Slack user ID")
	repsRegisterCmd.Flags().StringVar(&repTelegramID, "telegram-id", "", "Telegram chat ID")

	repsCmd.AddCommand(repsRegisterCmd)
	repsCmd.AddCommand(repsListCmd)
	repsCmd.AddCommand(repsRemoveCmd)
}

func runRepsRegister(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(repEmail)
	if email == "" {
		return fmt.Errorf("--email is required")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	dir, err := st.Directory()
	if err != nil {
		return err
	}
	dir.Upsert(identity.RepEntry{
		Email:         email,
		Name:          strings.TrimSpace(repName),
		SlackID:       strings.TrimSpace(repSlackID),
		TelegramID:    strings.TrimSpace(repTelegramID),
		RegisteredAt:  time.Now().UTC(),
		RegisteredVia: identity.RegisteredManual,
	})
	if err := st.SaveDirectory(dir); err != nil {
		return err
	}
	fmt.Printf("Registered %s\n", email)
	return nil
}

func runRepsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	dir, err := st.Directory()
	if err != nil {
		return err
	}
	if len(dir.Reps) == 0 {
		fmt.Println("No reps registered.")
		return nil
	}
	for _, rep := range dir.Reps {
		fmt.Printf("  %-30s slack=%-12s telegram=%-12s via=%s\n",
			rep.Email, rep.SlackID, rep.TelegramID, rep.RegisteredVia)
	}
	return nil
}

func runRepsRemove(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(args[0])
	st, err := openStore()
	if err != nil {
		return err
	}
	dir, err := st.Directory()
	if err != nil {
		return err
	}
	if !dir.Remove(email) {
		return fmt.Errorf("no rep with email %s", email)
	}
	if err := st.SaveDirectory(dir); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", email)
	return nil
}
