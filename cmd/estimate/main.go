// Command estimate prints the estimated price of a car from its mileage.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/YuminosukeSato/carprice/config"
	"github.com/YuminosukeSato/carprice/estimate"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("Estimation failed", log.ErrAttr(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	var mileage string
	fs.StringVar(&mileage, "mileage", "", "mileage to estimate (prompted for when empty)")
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

	est := estimate.New(cfg.Store())
	c, err := est.Load()
	if err != nil {
		return err
	}
	if est.Created() {
		fmt.Fprintf(stdout, "%s not found. Created a default one\n", cfg.ThetaPath)
	}
	if est.Defaulted() {
		fmt.Fprintf(stdout, "%s is invalid. Using default coefficients\n", cfg.ThetaPath)
	}
	fmt.Fprintf(stdout, "Loaded theta0 = %v, theta1 = %v\n", c.Theta0, c.Theta1)

	if mileage == "" {
		fmt.Fprint(stdout, "Enter mileage: ")
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "read mileage")
		}
		mileage = line
	}

	price, err := est.EstimateString(mileage)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Estimated price: %v\n", price)
	return nil
}
