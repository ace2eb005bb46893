package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ledgerline/finsight/internal/model"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the financial field schema from indexed documents",
	Long:  "Runs the full extraction pass: per-field retrieval and generation, confidence aggregation, recall of past corrections, anomaly annotation, and the validation decision.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, decision, err := env.Pipeline.Run(ctx)
		if err != nil {
			return err
		}

		out := struct {
			Result          *model.ExtractionResult `json:"result"`
			NeedsValidation bool                    `json:"needs_validation"`
			Rule            model.ValidationRule    `json:"rule"`
		}{result, decision.NeedsValidation, decision.Rule}

		raw, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return eris.Wrap(err, "cmd: marshal result")
		}

		if extractOutput != "" {
			if err := os.WriteFile(extractOutput, raw, 0o644); err != nil {
				return eris.Wrapf(err, "cmd: write %s", extractOutput)
			}
			fmt.Printf("result %s written to %s\n", result.ID, extractOutput)
		} else {
			fmt.Println(string(raw))
		}

		if decision.NeedsValidation {
			fmt.Fprintf(os.Stderr, "result needs human validation (%s); apply corrections with: finsight validate\n", decision.Rule)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write the result JSON to a file")
	rootCmd.AddCommand(extractCmd)
}
