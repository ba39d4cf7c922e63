package main

import (
	"fmt"
	"os"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/presentation/graph"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph --schema FILE [--values FILE]",
	Short: "Print a Mermaid diagram of a form definition",
	Long:  `Draws every field with its rule chain. With --values, fields are coloured by their check result.`,
	Run: func(cmd *cobra.Command, args []string) {
		env, err := loadEnvironment(cmd, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		defer env.Close()

		schemaPath, _ := cmd.Flags().GetString("schema")
		valuesPath, _ := cmd.Flags().GetString("values")

		def, err := schema.LoadDefinition(schemaPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading definition: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if valuesPath != "" {
			values, err := readValues(valuesPath, cmd.InOrStdin())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading values: %v\n", err)
				os.Exit(1)
			}
			rep, err := formwork.Check(cmd.Context(), def, env.registry, values)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
				os.Exit(1)
			}
			overlay = &graph.Overlay{Errors: rep.Errors}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("schema", "", "Form definition file")
	graphCmd.Flags().String("values", "", "Values file to overlay check results")
	_ = graphCmd.MarkFlagRequired("schema")
}
