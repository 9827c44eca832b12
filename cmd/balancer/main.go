// Package main is the balancer command line: it runs the control kernel against the simulated
// machine and inspects the controller and trajectory generator offline.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"go.viam.com/beambalancer/config"
)

const (
	// Flags.
	flagConfig       = "config"
	flagDebug        = "debug"
	flagSeconds      = "seconds"
	flagRealtime     = "realtime"
	flagBeam         = "beam"
	flagPerturbation = "perturbation"
	flagDryRun       = "dry-run"
	flagBroker       = "broker"
	flagOut          = "out"
	flagDistance     = "distance"
	flagVariant      = "variant"
	flagSequence     = "sequence"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "balancer",
		Usage: "run and inspect the beam balancer control kernel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load machine constants from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "simulate",
				Usage: "run the supervisor against the simulated machine",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  flagSeconds,
						Value: 30,
						Usage: "simulated time in seconds",
					},
					&cli.BoolFlag{
						Name:  flagRealtime,
						Usage: "tick at the sampling frequency on the wall clock instead of as fast as possible",
					},
					&cli.StringFlag{
						Name:  flagBeam,
						Value: "low",
						Usage: "mounted beam (low, high, very_short, invalid)",
					},
					&cli.Float64Flag{
						Name:  flagPerturbation,
						Usage: "initial beam tilt in radians when the axes couple",
					},
					&cli.BoolFlag{
						Name:  flagDryRun,
						Usage: "run the dynamic moves instead of balancing",
					},
					&cli.StringFlag{
						Name:  flagBroker,
						Usage: "publish telemetry to this MQTT broker, overriding the config",
					},
				},
				Action: simulateAction,
			},
			{
				Name:  "profile",
				Usage: "plot a jerk limited point to point move",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  flagDistance,
						Value: 0.2,
						Usage: "move distance in meters",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Value: ".",
						Usage: "output directory for the PNG files",
					},
				},
				Action: profileAction,
			},
			{
				Name:  "path",
				Usage: "plot the platform path of a move sequence",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagSequence,
						Usage: "sequence to plot (fast, standard, dynamic); defaults to the configured one",
					},
					&cli.StringFlag{
						Name:  flagVariant,
						Value: "low",
						Usage: "beam variant the sequence is scaled for",
					},
					&cli.StringFlag{
						Name:  flagOut,
						Value: ".",
						Usage: "output directory for the PNG file",
					},
				},
				Action: pathAction,
			},
			{
				Name:   "gains",
				Usage:  "print the controller gains and closed loop poles of every beam",
				Action: gainsAction,
			},
		},
	}
}

// loadConfig reads the --config file, or returns the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Read(path)
}
