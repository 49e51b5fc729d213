package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lightflow/lightflow/pkg/config"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition>",
		Short: "Validate a workflow definition file",
		Long: `Validate a YAML workflow definition without running it.

This command checks:
  - YAML syntax and unknown fields
  - Required fields and name uniqueness
  - Parameter declarations and supplied values
  - The dependency map: unknown task references and cycles`,
		Example: `  # Validate a definition
  lightflow validate deploy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			log.Info().Str("path", path).Msg("Validating workflow definition")

			def, err := config.Load(path)
			if err != nil {
				return err
			}
			w, err := config.Build(def)
			if err != nil {
				return err
			}
			graph, err := w.BuildGraph()
			if err != nil {
				return err
			}

			fmt.Printf("workflow %s is valid: %d jobs, %d tasks\n",
				w.Name(), len(w.Jobs()), graph.Len())
			return nil
		},
	}

	return cmd
}
