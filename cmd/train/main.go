// Command train fits the mileage → price model on a CSV file and writes the
// coefficient and trace artifacts.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/YuminosukeSato/carprice/config"
	"github.com/YuminosukeSato/carprice/linear"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("Training failed", log.ErrAttr(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
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

	samples, err := cfg.Loader().Load(cfg.DataPath)
	if err != nil {
		return err
	}

	opts := cfg.RegressorOptions()
	if cfg.Level() <= log.LevelDebug {
		opts = append(opts, linear.WithCallbacks(
			linear.LogEvaluation(log.GetLoggerWithName("linear.gd"), 1000)))
	}
	res, err := linear.NewGDRegressor(opts...).Fit(samples.Mileage, samples.Price)
	if err != nil {
		return err
	}

	// 学習に失敗した場合は何も保存しない。両方を検証してから履歴、係数の順に書き込み、
	// 履歴の書き込みに失敗したときに新しい係数だけが残らないようにする
	if err := res.Coefficients.Validate(); err != nil {
		return err
	}
	if err := res.Trace.Validate(); err != nil {
		return err
	}
	st := cfg.Store()
	if err := st.SaveTrace(res.Trace); err != nil {
		return err
	}
	if err := st.Save(res.Coefficients); err != nil {
		return err
	}

	switch res.Status {
	case linear.Converged:
		fmt.Fprintf(stdout, "Converged at iteration %d\n", res.Iterations)
	case linear.MaxIterReached:
		fmt.Fprintln(stdout, "Reached max iterations without full convergence")
	case linear.Stopped:
		fmt.Fprintf(stdout, "Stopped at iteration %d\n", res.Iterations)
	}
	fmt.Fprintf(stdout, "Training complete. theta0 = %v, theta1 = %v saved to '%s'.\n",
		res.Coefficients.Theta0, res.Coefficients.Theta1, cfg.ThetaPath)
	return nil
}
