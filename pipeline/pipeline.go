// Package pipeline runs visibility files through selection, transforms and
// reduction into display panels.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/hb9tf/plotuv/accum"
	"github.com/hb9tf/plotuv/axis"
	"github.com/hb9tf/plotuv/config"
	"github.com/hb9tf/plotuv/display"
	"github.com/hb9tf/plotuv/filter"
	"github.com/hb9tf/plotuv/marray"
	"github.com/hb9tf/plotuv/reduce"
	"github.com/hb9tf/plotuv/transform"
	"github.com/hb9tf/plotuv/uv"
)

// ErrNoData is returned when no baseline survived the selection.
var ErrNoData = errors.New("no data to plot")

type Pipeline struct {
	cfg    *config.Config
	opener uv.Opener
	engine *transform.Engine
}

// New returns a pipeline reading files through opener, uv.FileOpener when
// nil.
func New(cfg *config.Config, opener uv.Opener) *Pipeline {
	if opener == nil {
		opener = uv.FileOpener
	}
	return &Pipeline{
		cfg:    cfg,
		opener: opener,
		engine: transform.NewEngine(nil, cfg.Transform.Clean, cfg.Transform.Unmask),
	}
}

type Result struct {
	Panels   []*display.Panel
	Params   *display.Params
	Mode     reduce.Mode
	Legend   bool
	Metadata uv.Metadata
}

// selections resolves the channel and time options against the metadata of
// the first file.
func (p *Pipeline) selections(meta uv.Metadata) (*axis.ChannelSelection, *axis.TimeSelection, error) {
	cfg := p.cfg
	chans, err := axis.SelectChannels(cfg.Select.Chan, axis.FreqAxis{SFreq: meta.SFreq, SDF: meta.SDF, NChan: meta.NChan}, cfg.Plot.ChanAxis, cfg.Transform.Delay)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to select channels: %w", err)
	}
	times, err := axis.SelectTimes(cfg.Select.Time, meta.IntTime, cfg.Plot.TimeAxis, cfg.Select.Decimate, cfg.Transform.Fringe)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to select times: %w", err)
	}
	return chans, times, nil
}

func (p *Pipeline) filters() ([]filter.Filterer, error) {
	ant, err := filter.ParseAnt(p.cfg.Select.Ant)
	if err != nil {
		return nil, &config.ValidationError{Field: "ant", Reason: err.Error()}
	}
	return []filter.Filterer{ant, filter.ParsePol(p.cfg.Select.Pol)}, nil
}

func (p *Pipeline) rowFunc() accum.RowFunc {
	switch {
	case p.cfg.Transform.Delay:
		return func(samples []complex128, flags []bool) ([]complex128, []bool) {
			return p.engine.Delay(samples, flags), nil
		}
	case p.cfg.Transform.Unmask:
		return func(samples []complex128, _ []bool) ([]complex128, []bool) {
			return samples, nil
		}
	}
	return nil
}

// ingest feeds every record of one file into acc.
func ingest(r uv.Reader, acc *accum.Accumulator, filters []filter.Filterer) error {
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if filter.ShouldIgnore(rec, filters) {
			continue
		}
		if _, err := acc.Add(rec); err != nil {
			return err
		}
	}
}

// Run reads files in order and returns one panel per baseline.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Result, error) {
	cfg := p.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no input files")
	}
	mode, err := reduce.ParseMode(cfg.Plot.Mode)
	if err != nil {
		return nil, err
	}
	filters, err := p.filters()
	if err != nil {
		return nil, err
	}

	var (
		meta   uv.Metadata
		chans  *axis.ChannelSelection
		times  *axis.TimeSelection
		acc    *accum.Accumulator
		params *display.Params
	)
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		glog.V(1).Infof("Reading %s", name)
		r, err := p.opener.Open(name)
		if err != nil {
			return nil, fmt.Errorf("unable to open %q: %w", name, err)
		}
		if i == 0 {
			meta = r.Metadata()
			chans, times, err = p.selections(meta)
			if err != nil {
				r.Close()
				return nil, err
			}
			params = &display.Params{
				ChanIsRange: chans.IsRange,
				TimeIsRange: times.IsRange,
				SumChan:     cfg.Transform.SumChan,
			}
			if _, err := display.ChooseLayout(params); err != nil {
				r.Close()
				return nil, err
			}
			acc = accum.New(cfg.Select.Decimate, times.Accept, chans.Indices, p.rowFunc())
		} else if m := r.Metadata(); !m.Equal(meta) {
			glog.Warningf("%s has different metadata (%+v) than %s (%+v), using the selections of the first file", name, m, files[0], meta)
		}
		err = ingest(r, acc, filters)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to read %q: %w", name, err)
		}
	}

	res, err := acc.Finalize()
	if err != nil {
		return nil, err
	}
	if len(res.Baselines) == 0 {
		return nil, ErrNoData
	}

	p.fillParams(params, meta, chans, res.Times)
	out := &Result{
		Params:   params,
		Mode:     mode,
		Legend:   display.Legend(params),
		Metadata: meta,
	}
	for _, bl := range res.Baselines {
		data, err := p.process(res.Data[bl], mode)
		if err != nil {
			return nil, err
		}
		panel, err := display.Build(params, bl, data)
		if err != nil {
			return nil, err
		}
		out.Panels = append(out.Panels, panel)
	}
	return out, nil
}

func (p *Pipeline) fillParams(params *display.Params, meta uv.Metadata, chans *axis.ChannelSelection, times accum.TimeAxis) {
	cfg := p.cfg
	freqs, delays := meta.Freqs(), meta.Delays()
	params.Delay = cfg.Transform.Delay
	params.Fringe = cfg.Transform.Fringe
	params.DetrendFreq = cfg.Transform.DF
	params.DetrendTime = cfg.Transform.DT
	params.ChanAxis = cfg.Plot.ChanAxis
	params.TimeAxis = cfg.Plot.TimeAxis
	params.Chans = chans.Indices
	params.Times = times
	params.IntTime = meta.IntTime * float64(cfg.Select.Decimate)
	params.PlotMax = cfg.Plot.PlotMax
	params.DynRng = cfg.Plot.DynRng
	params.Freqs = make([]float64, len(chans.Indices))
	params.Delays = make([]float64, len(chans.Indices))
	for i, c := range chans.Indices {
		if c >= 0 && c < len(freqs) {
			params.Freqs[i] = freqs[c]
			params.Delays[i] = delays[c]
		}
	}
}

// reduce applies the time-domain transforms and reduces one baseline.
func (p *Pipeline) process(a *marray.Array, mode reduce.Mode) (*marray.Real, error) {
	cfg := p.cfg
	if cfg.Transform.Fringe {
		a = p.engine.Fringe(a)
	}
	if cfg.Transform.DF {
		a = transform.DetrendFreq(a)
	}
	if cfg.Transform.DT {
		a = transform.DetrendTime(a)
	}
	if cfg.Transform.SumChan {
		a = reduce.SumChannels(a)
	}
	return reduce.Reduce(a, mode)
}
