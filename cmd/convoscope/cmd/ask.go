package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/convolab/convoscope/internal/intelligence"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the LLM agent about the loaded data",
	Long: `Send a natural-language question about the loaded conversation export
to the configured LLM agent. With no question, start an interactive
session where follow-up questions carry the chat history.

Requires an OpenAI API key via [intelligence] api_key or the
OPENAI_API_KEY environment variable.`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}

	agent, err := intelligence.NewOpenAIAgent(intelligence.Config{
		APIKey:  cfg.Intelligence.APIKey,
		BaseURL: cfg.Intelligence.BaseURL,
		Model:   cfg.Intelligence.Model,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		answer, err := agent.Answer(cmd.Context(), ds, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer)
		return nil
	}

	fmt.Fprintln(out, "Some questions to get started:")
	for _, q := range intelligence.SuggestedQuestions {
		fmt.Fprintf(out, "  - %s\n", q)
	}
	fmt.Fprintln(out, "\nType a question, or press Ctrl+D to quit.")

	session := intelligence.NewSession(agent, ds)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		answer, err := session.Ask(cmd.Context(), question)
		if err != nil {
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n", answer)
	}
}
