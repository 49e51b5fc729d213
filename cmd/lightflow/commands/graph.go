package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lightflow/lightflow/pkg/config"
)

func newGraphCommand() *cobra.Command {
	var showOrder bool

	cmd := &cobra.Command{
		Use:   "graph <definition>",
		Short: "Render the execution graph of a workflow definition",
		Long: `Render the merged execution graph of a workflow definition.

By default the graph is printed in Graphviz DOT format, with tasks
clustered by job. With --order the deterministic execution order is
printed instead, one task per line.`,
		Example: `  # Render the graph as DOT
  lightflow graph deploy.yaml | dot -Tsvg -o deploy.svg

  # Print the execution order
  lightflow graph --order deploy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := config.Load(args[0])
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

			if showOrder {
				order := graph.Order()
				for i, task := range order {
					fmt.Printf("%d/%d %s\n", i+1, len(order), task.QualifiedName())
				}
				return nil
			}

			fmt.Print(graph.ToDOT())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showOrder, "order", false, "print the execution order instead of DOT")

	return cmd
}
