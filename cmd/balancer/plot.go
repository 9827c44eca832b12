package main

import (
	"bufio"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"go.viam.com/beambalancer/beam"
	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/control"
	"go.viam.com/beambalancer/kinematics"
	"go.viam.com/beambalancer/logging"
	"go.viam.com/beambalancer/motionplan"
	"go.viam.com/beambalancer/warning"
)

// maxPathTicks bounds the offline run of a sequence, ten minutes at 10 kHz.
const maxPathTicks = 6_000_000

func profileAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	t := config.DefaultTunables()
	series, err := profileSeries(cfg.SamplingFrequency, c.Float64(flagDistance), t.MoveVel, t.MoveAcc, t.MoveJerk)
	if err != nil {
		return err
	}

	out := c.String(flagOut)
	for _, q := range []struct {
		name, label string
		ys          []float64
	}{
		{"profile_pos.png", "position [m]", series.pos},
		{"profile_vel.png", "velocity [m/s]", series.vel},
		{"profile_acc.png", "acceleration [m/s²]", series.acc},
		{"profile_jrk.png", "jerk [m/s³]", series.jrk},
	} {
		if err := saveLinePlot(filepath.Join(out, q.name), "point to point move", "time [s]", q.label, series.t, q.ys); err != nil {
			return err
		}
	}
	return nil
}

type profileData struct {
	t, pos, vel, acc, jrk []float64
}

// profileSeries runs a single move to completion and samples every tick.
func profileSeries(fs, distance, vMax, aMax, jMax float64) (profileData, error) {
	if distance == 0 {
		return profileData{}, errors.New("move distance must not be zero")
	}
	p := control.NewProfile1D(fs)
	p.InitPositionMove(distance, vMax, aMax, jMax)

	var d profileData
	for i := 0; i < maxPathTicks; i++ {
		done := p.Step(true)
		d.t = append(d.t, float64(i+1)/fs)
		d.pos = append(d.pos, p.Pos())
		d.vel = append(d.vel, p.Vel())
		d.acc = append(d.acc, p.Acc())
		d.jrk = append(d.jrk, p.Jrk())
		if done {
			return d, nil
		}
	}
	return profileData{}, errors.New("move did not finish")
}

func pathAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	variant, err := beam.ParseVariant(c.String(flagVariant))
	if err != nil {
		return err
	}
	name := c.String(flagSequence)
	if name == "" {
		name = cfg.Path.Sequence
	}
	xs, ys, err := sequencePath(cfg, name, variant)
	if err != nil {
		return err
	}
	file := filepath.Join(c.String(flagOut), "path_"+name+".png")
	return saveLinePlot(file, name+" sequence, "+variant.String()+" beam", "x [m]", "y [m]", xs, ys)
}

// sequencePath runs a sequence from the home pose without a plant and returns the reference path.
func sequencePath(cfg *config.Config, name string, variant beam.Variant) ([]float64, []float64, error) {
	var seq *motionplan.Sequencer
	if name == "dynamic" {
		seq = motionplan.NewDynamicSequencer()
	} else {
		var err error
		if seq, err = motionplan.NewMoveSequencer(name); err != nil {
			return nil, nil, err
		}
	}

	home := kinematics.NewLinkage(cfg.Geometry).Forward(
		config.DegToRad(cfg.Joints.Phi0HomeDeg), config.DegToRad(cfg.Joints.Phi1HomeDeg))
	env := motionplan.Env{
		HomeX:    home.X,
		HomeY:    home.Y,
		Variant:  variant,
		Tunables: config.DefaultTunables(),
		Path:     cfg.Path,
		Variants: cfg.Beam.Variants,
	}
	composer := motionplan.NewComposer(cfg.SamplingFrequency, warning.NewField(logging.NewBlankLogger("path")))
	composer.Reset(home.X, home.Y)

	var xs, ys []float64
	for i := 0; i < maxPathTicks; i++ {
		if seq.Run(composer, env) {
			return xs, ys, nil
		}
		composer.Step(true)
		if i%sampleEvery == 0 {
			x, y := composer.State()
			xs = append(xs, x.Pos)
			ys = append(ys, y.Pos)
		}
	}
	return nil, nil, errors.Errorf("sequence %q did not finish", name)
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.Add(plotter.NewGrid())
}

func saveLinePlot(filename, title, xlabel, ylabel string, xs, ys []float64) error {
	if len(xs) != len(ys) || len(xs) == 0 {
		return errors.New("plot data invalid")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	stylePlot(p)

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = color.RGBA{B: 200, A: 255}
	p.Add(line)
	return savePlotPNG(p, 8, 6, filename)
}

func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return errors.Wrap(err, "cannot create plot directory")
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	//nolint:gosec
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", filename)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return errors.Wrapf(err, "cannot write %s", filename)
	}
	return bw.Flush()
}
