package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:          "battery-eval",
		Short:        "Battery trading policy simulation and evaluation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config")

	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newPoliciesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// parseParams turns repeated key=value flags into policy parameters,
// guessing the narrowest type the value parses as.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad --param %q, want key=value", pair)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

func parseValue(s string) any {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return s
}
