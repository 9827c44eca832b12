package main

import (
	"fmt"
	"io"
	"math"

	"github.com/urfave/cli/v2"

	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
)

func gainsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return printGains(c.App.Writer, cfg, config.DefaultTunables())
}

func printGains(w io.Writer, cfg *config.Config, t config.Tunables) error {
	ts := cfg.SamplingTime()
	intLimit := config.DegToRad(cfg.Controller.IntegratorLimitDeg)
	fmt.Fprintf(w, "damping %.2f  state %.2f Hz  integrator %.2f Hz\n", t.Damping, t.StateFreqHz, t.IntFreqHz)
	for _, v := range []struct {
		variant beam.Variant
		vc      config.VariantConfig
	}{
		{beam.Low, cfg.Beam.Variants.Low},
		{beam.High, cfg.Beam.Variants.High},
		{beam.VeryShort, cfg.Beam.Variants.VeryShort},
	} {
		g := control.DeriveGains(control.GainInputs{
			Damping:       t.Damping,
			StateFreqHz:   t.StateFreqHz,
			IntFreqHz:     t.IntFreqHz,
			NaturalFreqSq: beam.GainFreqSq(v.variant, cfg.Beam.Variants),
		}, ts, cfg.Gravity, intLimit)
		poles, err := g.Poles(ts)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "\n%v beam: l0 %.4f m\n", v.variant, cfg.Gravity/(v.vc.NaturalFreq*v.vc.NaturalFreq))
		fmt.Fprintf(w, "  K  %v\n  Kt %.6g  integrator limit %.6g\n", g.K, g.Kt, g.IntegratorLimit)
		for _, p := range poles {
			fmt.Fprintf(w, "  pole %8.3f %+8.3fi  (%.3f Hz)\n", real(p), imag(p), math.Hypot(real(p), imag(p))/(2*math.Pi))
		}
		fmt.Fprintf(w, "  stable %v\n", g.Stable(ts))
	}
	return nil
}
