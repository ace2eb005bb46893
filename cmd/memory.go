package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage the correction memory",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show correction memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Mem.Stats(ctx)
		if err != nil {
			return err
		}

		raw, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return eris.Wrap(err, "cmd: marshal stats")
		}
		fmt.Println(string(raw))
		return nil
	},
}

var memoryExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all correction records to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Mem.Export(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("memory exported to %s\n", args[0])
		return nil
	},
}

var memoryResetForce bool

var memoryResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all correction records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !memoryResetForce {
			fmt.Print("delete all correction records? [y/N] ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(line)) != "y" {
				fmt.Println("aborted")
				return nil
			}
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Mem.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("correction memory reset")
		return nil
	},
}

func init() {
	memoryResetCmd.Flags().BoolVarP(&memoryResetForce, "force", "f", false, "skip the confirmation prompt")
	memoryCmd.AddCommand(memoryStatsCmd, memoryExportCmd, memoryResetCmd)
	rootCmd.AddCommand(memoryCmd)
}
