package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ledgerline/finsight/internal/model"
)

var (
	validateResultFile      string
	validateCorrectionsFile string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Apply reviewer corrections to an extraction result",
	Long:  "Reads an extraction result and a list of corrections (add/correct/remove actions), applies them, and records the correction in memory so future extractions benefit from it. An empty corrections list confirms the result as-is.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		result, err := readResultFile(validateResultFile)
		if err != nil {
			return err
		}

		var actions []model.CorrectionAction
		if validateCorrectionsFile != "" {
			raw, err := os.ReadFile(validateCorrectionsFile)
			if err != nil {
				return eris.Wrapf(err, "cmd: read %s", validateCorrectionsFile)
			}
			if err := json.Unmarshal(raw, &actions); err != nil {
				return eris.Wrapf(err, "cmd: parse %s", validateCorrectionsFile)
			}
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		validated, err := env.Pipeline.Confirm(ctx, result, actions)
		if err != nil {
			return err
		}

		raw, err := json.MarshalIndent(validated, "", "  ")
		if err != nil {
			return eris.Wrap(err, "cmd: marshal result")
		}
		fmt.Println(string(raw))
		return nil
	},
}

// readResultFile loads an extraction result written by the extract command,
// accepting both the bare result and the {result, needs_validation} envelope.
func readResultFile(path string) (*model.ExtractionResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cmd: read %s", path)
	}

	var envelope struct {
		Result *model.ExtractionResult `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Result != nil {
		return envelope.Result, nil
	}

	var result model.ExtractionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrapf(err, "cmd: parse %s", path)
	}
	if result.Sheet == nil {
		return nil, eris.Errorf("cmd: %s does not contain an extraction result", path)
	}
	return &result, nil
}

func init() {
	validateCmd.Flags().StringVarP(&validateResultFile, "result", "r", "", "extraction result JSON file (required)")
	validateCmd.Flags().StringVarP(&validateCorrectionsFile, "corrections", "c", "", "corrections JSON file (array of actions)")
	_ = validateCmd.MarkFlagRequired("result")
	rootCmd.AddCommand(validateCmd)
}
