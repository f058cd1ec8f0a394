// Command evaluate reports the accuracy of the trained coefficients on the
// sample file and renders the regression, loss and evolution charts.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/carprice/chart"
	"github.com/YuminosukeSato/carprice/config"
	"github.com/YuminosukeSato/carprice/metrics"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("Evaluation failed", log.ErrAttr(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cfg, err := config.Load(fs, args, "")
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("evaluate")

	samples, err := cfg.Loader().Load(cfg.DataPath)
	if err != nil {
		return err
	}
	st := cfg.Store()
	coef, err := st.Load()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Loaded theta0 = %v, theta1 = %v\n", coef.Theta0, coef.Theta1)

	report, err := metrics.Evaluate(coef, samples.Mileage, samples.Price)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, report)
	logger.Info("Evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.PhaseKey, log.PhaseEvaluation,
		"metrics", report,
	)

	if err := os.MkdirAll(cfg.PlotDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", cfg.PlotDir)
	}
	regressionPath := filepath.Join(cfg.PlotDir, chart.DefaultRegressionFile)
	if err := chart.Regression(regressionPath, samples, coef); err != nil {
		return err
	}

	trace, err := st.LoadTrace()
	if err != nil {
		return err
	}
	lossPath := filepath.Join(cfg.PlotDir, chart.DefaultLossFile)
	if err := chart.Loss(lossPath, trace); err != nil {
		return err
	}
	evolutionPath := filepath.Join(cfg.PlotDir, chart.DefaultEvolutionFile)
	if err := chart.Evolution(evolutionPath, samples, trace, cfg.Frames); err != nil {
		return err
	}

	logger.Info("Charts rendered",
		log.OperationKey, log.OperationRender,
		"files", []string{regressionPath, lossPath, evolutionPath},
	)
	return nil
}
