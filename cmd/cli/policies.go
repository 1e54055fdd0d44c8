package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"battery-eval/internal/policy"
)

func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List the registered policy class names",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range policy.Names() {
				fmt.Println(name)
			}
		},
	}
}
