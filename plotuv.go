package main

/*
plotuv renders visibility files (.uvb) as per-baseline waterfalls, spectra or
time series, optionally in delay or fringe-rate space, and can export the
plotted values to CSV, sqlite, MySQL or a plotuv server.
*/

import (
	"context"
	"errors"
	goflag "flag"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hb9tf/plotuv/config"
	"github.com/hb9tf/plotuv/export"
	"github.com/hb9tf/plotuv/pipeline"
	"github.com/hb9tf/plotuv/render"
)

var (
	cfgFile string
	cfg     = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "plotuv [flags] FILE...",
	Short: "Plot visibility data per baseline",
	Long: `plotuv reads one or more visibility files in time order and plots the
selected channels and integrations of every baseline into a single image.`,
	Args:              cobra.MinimumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return loadConfig(cmd) },
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

// optionalFloats are only set when given on the command line, so that an
// unset flag keeps meaning "not set".
var optionalFloats = map[string]string{
	"clean":    "transform.clean",
	"plot_max": "plot.plot_max",
	"dyn_rng":  "plot.dyn_rng",
}

func init() {
	d := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file (default: ./plotuv.yaml if present)")

	// Selection
	flags.StringP("ant", "a", d.Select.Ant, "Antennas to plot: all, auto, cross, <i> or <i>_<j>, comma separated, '-' prefix excludes.")
	flags.StringP("pol", "p", d.Select.Pol, "Polarizations to plot, comma separated, or all.")
	flags.StringP("chan", "c", d.Select.Chan, "Channels to plot: all, <lo>_<hi> ranges or a list, comma separated.")
	flags.StringP("time", "t", d.Select.Time, "Integrations to plot: all, <lo>_<hi> ranges or a list, comma separated.")
	flags.Int("decimate", d.Select.Decimate, "Use only every n-th integration.")

	// Transforms
	flags.BoolP("unmask", "u", d.Transform.Unmask, "Plot flagged data too.")
	flags.BoolP("delay", "d", d.Transform.Delay, "Transform channels into delay.")
	flags.BoolP("fringe", "f", d.Transform.Fringe, "Transform integrations into fringe rate.")
	flags.Bool("dt", d.Transform.DT, "Remove a linear trend along time (2nd difference).")
	flags.Bool("df", d.Transform.DF, "Remove a linear trend along frequency (2nd difference).")
	flags.Bool("sum_chan", d.Transform.SumChan, "Sum the selected channels.")
	flags.Float64("clean", 0, "Deconvolve the flagging response down to this tolerance, e.g. 1e-3.")

	// Plot
	flags.StringP("mode", "m", d.Plot.Mode, "Plot mode: log, lin, phs, real, imag.")
	flags.String("time_axis", d.Plot.TimeAxis, "Time axis: index, physical or lst.")
	flags.String("chan_axis", d.Plot.ChanAxis, "Channel axis: index or physical.")
	flags.StringP("out_file", "o", d.Plot.OutFile, "Image to write, .png, .jpg or .jpeg.")
	flags.Int("width", d.Plot.Width, "Image width in pixels.")
	flags.Int("height", d.Plot.Height, "Image height in pixels.")
	flags.Float64("plot_max", 0, "Upper bound of the color scale or y axis.")
	flags.Float64("dyn_rng", 0, "Dynamic range below the upper bound.")

	// Export
	flags.String("export", d.Export.Method, "Export plotted values (one of: csv, sqlite, mysql, server).")
	flags.String("id", d.Export.ID, "Identifier of this run in exported data (random when empty).")
	flags.String("sqlite_file", d.Export.SQLiteFile, "File path of the sqlite DB file to use.")
	flags.String("mysql_server", d.Export.MySQLServer, "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	flags.String("mysql_user", d.Export.MySQLUser, "MySQL DB user.")
	flags.String("mysql_password_file", d.Export.MySQLPasswordFile, "Path to the file containing the password for the MySQL user.")
	flags.String("mysql_db_name", d.Export.MySQLDBName, "Name of the DB to use.")
	flags.String("server", d.Export.Server, "URL of the plotuv server to send samples to.")

	rootCmd.MarkFlagsMutuallyExclusive("delay", "fringe")

	for key, flag := range map[string]string{
		"select.ant":                 "ant",
		"select.pol":                 "pol",
		"select.chan":                "chan",
		"select.time":                "time",
		"select.decimate":            "decimate",
		"transform.unmask":           "unmask",
		"transform.delay":            "delay",
		"transform.fringe":           "fringe",
		"transform.dt":               "dt",
		"transform.df":               "df",
		"transform.sum_chan":         "sum_chan",
		"plot.mode":                  "mode",
		"plot.time_axis":             "time_axis",
		"plot.chan_axis":             "chan_axis",
		"plot.out_file":              "out_file",
		"plot.width":                 "width",
		"plot.height":                "height",
		"export.method":              "export",
		"export.id":                  "id",
		"export.sqlite_file":         "sqlite_file",
		"export.mysql_server":        "mysql_server",
		"export.mysql_user":          "mysql_user",
		"export.mysql_password_file": "mysql_password_file",
		"export.mysql_db_name":       "mysql_db_name",
		"export.server":              "server",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(configCmd)
}

// loadConfig merges defaults, the config file, PLOTUV_* environment
// variables and flags into cfg.
func loadConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("plotuv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("PLOTUV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("unable to read config: %w", err)
		}
	} else {
		glog.V(1).Infof("Using config file: %s", viper.ConfigFileUsed())
	}

	flags := cmd.Flags()
	for flag, key := range optionalFloats {
		if flags.Changed(flag) {
			viper.Set(key, cast.ToFloat64(flags.Lookup(flag).Value.String()))
		}
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	return cfg.Validate()
}

func run(ctx context.Context, files []string) error {
	res, err := pipeline.New(cfg, nil).Run(ctx, files)
	if errors.Is(err, pipeline.ErrNoData) {
		fmt.Println("No data to plot.")
		return nil
	}
	if err != nil {
		return err
	}

	img, err := render.Render(res.Panels, &render.Options{
		Width:  cfg.Plot.Width,
		Height: cfg.Plot.Height,
		Legend: res.Legend,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Writing image to %q\n", cfg.Plot.OutFile)
	if err := render.WriteFile(cfg.Plot.OutFile, img); err != nil {
		return err
	}

	exporter, closeExporter, err := export.FromConfig(&cfg.Export)
	if err != nil {
		return err
	}
	defer closeExporter()
	if exporter == nil {
		return nil
	}
	id := cfg.Export.ID
	if id == "" {
		id = uuid.New().String()
	}
	glog.V(1).Infof("Exporting plotted values as %q via %s", id, cfg.Export.Method)
	return export.Panels(ctx, exporter, id, string(res.Mode), res.Panels)
}

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	goflag.Set("logtostderr", "false")
	goflag.Set("stderrthreshold", "WARNING")
	goflag.Set("v", "1")
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	// glog reads its flags from the standard flag set, which cobra fills in.
	goflag.CommandLine.Parse(nil)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		glog.Exitf("plotuv: %s", err)
	}
	glog.Flush()
}
