package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/warp/internal/config"
	"github.com/aretw0/warp/pkg/script"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var runCmd = &cobra.Command{
	Use:   "run <script.lua>",
	Short: "Run a Lua script as a pipeline and print the resulting model",
	Long: `Runs the script once and prints the model as YAML.
Parameters are passed with --param key=value. With --db the script runs inside a SQL transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, _ := cmd.Flags().GetString("db")
		pairs, _ := cmd.Flags().GetStringArray("param")

		params, err := parseParams(pairs)
		if err != nil {
			return err
		}

		s, err := script.LoadFile(args[0])
		if err != nil {
			return err
		}

		rt, err := newRuntime(cmd, func(cfg *config.Config) {
			if dsn != "" {
				cfg.DatabaseDSN = dsn
			}
		})
		if err != nil {
			return err
		}
		defer rt.Close()

		model, runErr := rt.ScriptPipeline(s, params).Execute(cmd.Context())

		out, err := yaml.Marshal(model)
		if err != nil {
			return fmt.Errorf("failed to render model: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return runErr
	},
}

// parseParams turns key=value pairs into a params map.
// Values are read as YAML, so "3" is an int and "[a, b]" a list; anything else stays a string.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", pair)
		}
		var typed any
		if err := yaml.Unmarshal([]byte(value), &typed); err != nil || typed == nil {
			typed = value
		}
		params[key] = typed
	}
	return params, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayP("param", "p", nil, "Pipeline parameter as key=value (repeatable)")
	runCmd.Flags().String("db", "", "SQLite DSN; runs the script inside a transaction")
}
