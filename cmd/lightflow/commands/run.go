package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lightflow/lightflow/pkg/config"
	"github.com/lightflow/lightflow/pkg/engine"
	"github.com/lightflow/lightflow/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	var (
		metricsAddr string
		showData    bool
	)

	cmd := &cobra.Command{
		Use:   "run <definition>",
		Short: "Run a workflow definition",
		Long: `Run a YAML workflow definition to completion.

Tasks execute one at a time in the deterministic order derived from the
definition. The run aborts on the first task failure; the exit code is
non-zero when the workflow does not finish successfully.`,
		Example: `  # Run a workflow
  lightflow run deploy.yaml

  # Run and expose Prometheus metrics while executing
  lightflow run --metrics-addr :9090 deploy.yaml

  # Print the collected run data afterwards
  lightflow run --data deploy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := config.Load(args[0])
			if err != nil {
				return err
			}

			level := "info"
			if verbose {
				level = "debug"
			}
			logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
				Level:  level,
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return err
			}

			metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
				Enabled:   metricsAddr != "",
				Namespace: "lightflow",
			})
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				go func() {
					if serveErr := http.ListenAndServe(metricsAddr, mux); serveErr != nil {
						log.Error().Err(serveErr).Msg("Metrics server failed")
					}
				}()
			}

			events := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: jsonOutput})
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				events.Subscribe(func(e telemetry.Event) {
					if encErr := enc.Encode(e); encErr != nil {
						log.Error().Err(encErr).Msg("Failed to encode event")
					}
				})
			}

			env := telemetry.NewEnvironment(os.Stdout)
			if jsonOutput {
				// Progress lines would interleave with the event stream.
				env = telemetry.NewEnvironment(os.Stderr)
			}

			w, err := config.Build(def,
				engine.WithLogger(logger),
				engine.WithMetrics(metrics),
				engine.WithEvents(events),
				engine.WithEnvironment(env),
			)
			if err != nil {
				return err
			}

			if err := w.Run(cmd.Context()); err != nil {
				return err
			}

			if showData {
				for _, key := range w.Data().Keys() {
					value, _ := w.Data().Get(key)
					fmt.Printf("%s: %v\n", key, value)
				}
			}

			if w.State() != engine.WorkflowSuccess {
				return fmt.Errorf("workflow %s finished with state %s", w.Name(), w.State())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on during the run")
	cmd.Flags().BoolVar(&showData, "data", false, "print the collected run data after the run")

	return cmd
}
