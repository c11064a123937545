package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash a password for the config file",
	Long: `Generate a bcrypt hash for a [[users]] entry in config.toml. With no
argument, prompt for the password without echoing it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		var confirm string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm),
		))
		if err := form.Run(); err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, hash)
	fmt.Fprintln(out, "\nAdd to config.toml:")
	fmt.Fprintln(out, "\n  [[users]]")
	fmt.Fprintln(out, "  username = \"...\"")
	fmt.Fprintf(out, "  password_hash = %q\n", hash)
	fmt.Fprintln(out, "  role = \"user\"  # or \"admin\"")
	return nil
}
