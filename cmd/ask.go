package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koopa0/ragline/internal/storage"
)

var (
	askProject    string
	askLimit      int
	askShowPrompt bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against a project's indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askProject, "project", "p", "", "project identifier (alphanumeric)")
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "maximum documents to retrieve (0 = configured default)")
	askCmd.Flags().BoolVar(&askShowPrompt, "show-prompt", false, "print the assembled prompt before the answer")
	_ = askCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateProjectID(askProject); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	ctx := context.Background()
	a, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	limit := askLimit
	if limit < 1 {
		limit = a.cfg.RetrievalLimit
	}

	result, err := a.system.Answer(ctx, askProject, question, limit)
	if err != nil {
		return err
	}

	if !result.Answered() {
		fmt.Printf("No answer: nothing relevant found in project %q. Index some documents first.\n", askProject)
		return nil
	}

	if askShowPrompt {
		fmt.Println("--- prompt ---")
		fmt.Println(result.FullPrompt)
		fmt.Println("--- answer ---")
	}
	fmt.Println(result.Answer)
	return nil
}
