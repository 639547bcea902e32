// Package config holds the plotuv configuration and its defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hb9tf/plotuv/axis"
	"github.com/hb9tf/plotuv/reduce"
	"github.com/hb9tf/plotuv/render"
)

// Config represents the complete plotuv configuration.
type Config struct {
	Select    SelectConfig    `mapstructure:"select" yaml:"select"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform"`
	Plot      PlotConfig      `mapstructure:"plot" yaml:"plot"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// SelectConfig chooses which records, channels and times are plotted.
type SelectConfig struct {
	Ant      string `mapstructure:"ant" yaml:"ant"`           // antenna selection, e.g. "all", "cross", "0_1,-auto"
	Pol      string `mapstructure:"pol" yaml:"pol"`           // polarizations, e.g. "xx,yy" or "all"
	Chan     string `mapstructure:"chan" yaml:"chan"`         // channel selection, e.g. "all" or "100_200"
	Time     string `mapstructure:"time" yaml:"time"`         // time selection, e.g. "all" or "0_50"
	Decimate int    `mapstructure:"decimate" yaml:"decimate"` // keep every n-th integration
}

// TransformConfig configures the transforms applied before reduction.
type TransformConfig struct {
	Unmask  bool     `mapstructure:"unmask" yaml:"unmask"`         // ignore flags
	Delay   bool     `mapstructure:"delay" yaml:"delay"`           // transform channels into delay
	Fringe  bool     `mapstructure:"fringe" yaml:"fringe"`         // transform time into fringe rate
	DT      bool     `mapstructure:"dt" yaml:"dt"`                 // remove a linear trend along time
	DF      bool     `mapstructure:"df" yaml:"df"`                 // remove a linear trend along frequency
	SumChan bool     `mapstructure:"sum_chan" yaml:"sum_chan"`     // sum the selected channels
	Clean   *float64 `mapstructure:"clean" yaml:"clean,omitempty"` // deconvolution tolerance, unset disables it
}

// PlotConfig configures the rendered image.
type PlotConfig struct {
	Mode     string   `mapstructure:"mode" yaml:"mode"`                   // log, lin, phs, real or imag
	TimeAxis string   `mapstructure:"time_axis" yaml:"time_axis"`         // index, physical or lst
	ChanAxis string   `mapstructure:"chan_axis" yaml:"chan_axis"`         // index or physical
	OutFile  string   `mapstructure:"out_file" yaml:"out_file"`           // .png, .jpg or .jpeg
	Width    int      `mapstructure:"width" yaml:"width"`                 // pixels
	Height   int      `mapstructure:"height" yaml:"height"`               // pixels
	PlotMax  *float64 `mapstructure:"plot_max" yaml:"plot_max,omitempty"` // upper color/y bound
	DynRng   *float64 `mapstructure:"dyn_rng" yaml:"dyn_rng,omitempty"`   // lower bound below PlotMax
}

// ExportConfig configures where plotted values are exported to.
type ExportConfig struct {
	Method            string `mapstructure:"method" yaml:"method"`                           // "", csv, sqlite, mysql or server
	ID                string `mapstructure:"id" yaml:"id"`                                   // run identifier, random when empty
	SQLiteFile        string `mapstructure:"sqlite_file" yaml:"sqlite_file"`                 // path of the sqlite DB file
	MySQLServer       string `mapstructure:"mysql_server" yaml:"mysql_server"`               // host:port
	MySQLUser         string `mapstructure:"mysql_user" yaml:"mysql_user"`                   // DB user
	MySQLPasswordFile string `mapstructure:"mysql_password_file" yaml:"mysql_password_file"` // file holding the password
	MySQLDBName       string `mapstructure:"mysql_db_name" yaml:"mysql_db_name"`             // DB name
	Server            string `mapstructure:"server" yaml:"server"`                           // remote plotuv server URL
}

// ServerConfig configures the HTTP render service.
type ServerConfig struct {
	Listen   string        `mapstructure:"listen" yaml:"listen"`       // listen address
	DataDir  string        `mapstructure:"data_dir" yaml:"data_dir"`   // directory holding .uvb files
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"` // lifetime of rendered images
	CertFile string        `mapstructure:"cert_file" yaml:"cert_file"` // TLS certificate chain
	KeyFile  string        `mapstructure:"key_file" yaml:"key_file"`   // TLS key
}

// Export methods.
const (
	ExportNone   = ""
	ExportCSV    = "csv"
	ExportSQLite = "sqlite"
	ExportMySQL  = "mysql"
	ExportServer = "server"
)

// DefaultConfig returns the defaults of the command line tool.
func DefaultConfig() *Config {
	return &Config{
		Select: SelectConfig{
			Ant:      "cross",
			Pol:      "all",
			Chan:     axis.All,
			Time:     axis.All,
			Decimate: 1,
		},
		Plot: PlotConfig{
			Mode:     string(reduce.ModeLog),
			TimeAxis: axis.CoordIndex,
			ChanAxis: axis.CoordIndex,
			OutFile:  "/tmp/plotuv.png",
			Width:    1024,
			Height:   768,
		},
		Export: ExportConfig{
			SQLiteFile:  "/tmp/plotuv.db",
			MySQLServer: "127.0.0.1:3306",
			MySQLDBName: "plotuv",
		},
		Server: ServerConfig{
			Listen:   ":8443",
			DataDir:  ".",
			CacheTTL: 5 * time.Minute,
		},
	}
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, a ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// Validate checks the options that do not depend on the data files.
func (c *Config) Validate() error {
	if c.Select.Decimate < 1 {
		return invalid("decimate", "must be at least 1, got %d", c.Select.Decimate)
	}
	if c.Transform.Delay && c.Transform.Fringe {
		return invalid("delay", "delay and fringe cannot be combined")
	}
	if c.Transform.Clean != nil && *c.Transform.Clean <= 0 {
		return invalid("clean", "tolerance must be positive, got %g", *c.Transform.Clean)
	}
	if _, err := reduce.ParseMode(c.Plot.Mode); err != nil {
		return invalid("mode", "%s", err)
	}
	switch c.Plot.ChanAxis {
	case axis.CoordIndex, axis.CoordPhysical:
	default:
		return invalid("chan_axis", "%q is not one of index, physical", c.Plot.ChanAxis)
	}
	switch c.Plot.TimeAxis {
	case axis.CoordIndex, axis.CoordPhysical, axis.CoordLST:
	default:
		return invalid("time_axis", "%q is not one of index, physical, lst", c.Plot.TimeAxis)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return invalid("size", "%dx%d is not a valid image size", c.Plot.Width, c.Plot.Height)
	}
	if c.Plot.DynRng != nil && *c.Plot.DynRng < 0 {
		return invalid("dyn_rng", "must not be negative, got %g", *c.Plot.DynRng)
	}
	if _, err := render.FormatFromPath(c.Plot.OutFile); err != nil {
		return invalid("out_file", "%s", err)
	}
	switch strings.ToLower(c.Export.Method) {
	case ExportNone, ExportCSV, ExportSQLite, ExportMySQL:
	case ExportServer:
		if c.Export.Server == "" {
			return invalid("export", "server export needs a server URL")
		}
	default:
		return invalid("export", "%q is not a supported export method, pick one of: csv, sqlite, mysql, server", c.Export.Method)
	}
	return nil
}
