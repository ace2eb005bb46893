package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question> [question...]",
	Short: "Answer questions over the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		answers, err := env.Answerer.AnswerBatch(ctx, args)
		if err != nil {
			return err
		}

		if askJSON {
			raw, err := json.MarshalIndent(answers, "", "  ")
			if err != nil {
				return eris.Wrap(err, "cmd: marshal answers")
			}
			fmt.Println(string(raw))
			return nil
		}

		for _, ans := range answers {
			fmt.Printf("Q: %s\n", ans.Question)
			fmt.Printf("A: %s\n", ans.Text)
			fmt.Printf("   confidence=%.2f sources=%v", ans.Confidence, ans.Sources)
			if ans.FromMemory {
				fmt.Print(" (from memory)")
			}
			if ans.NeedsValidation {
				fmt.Print(" [needs validation]")
			}
			fmt.Print("\n\n")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print answers as JSON")
	rootCmd.AddCommand(askCmd)
}
