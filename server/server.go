package main

/*
This application serves rendered plots of the visibility files in a data
directory over HTTP and collects samples exported by other plotuv instances.
*/

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/hb9tf/plotuv/axis"
	"github.com/hb9tf/plotuv/config"
	"github.com/hb9tf/plotuv/display"
	"github.com/hb9tf/plotuv/export"
	"github.com/hb9tf/plotuv/pipeline"
	"github.com/hb9tf/plotuv/reduce"
	"github.com/hb9tf/plotuv/render"
	"github.com/hb9tf/plotuv/uv"
)

var (
	configFile = flag.String("config", "", "YAML config file providing the plot defaults and the server settings.")
	listen     = flag.String("listen", "", "Address to listen on (overrides server.listen).")
	dataDir    = flag.String("dataDir", "", "Directory holding the visibility files (overrides server.data_dir).")
	certFile   = flag.String("certFile", "", "Path of the file containing the certificate (including the chained intermediates and root) for the TLS connection.")
	keyFile    = flag.String("keyFile", "", "Path of the file containing the key for the TLS connection.")
	output     = flag.String("output", "", "Export mechanism for collected samples (one of: csv, sqlite, mysql).")
)

const (
	apiPrefix      = "/plotuv/v1"
	filesEndpoint  = apiPrefix + "/files"
	renderEndpoint = apiPrefix + "/render"
	requestIDKey   = "requestID"
	maxImageSide   = 8192 // pixels
)

type PlotServer struct {
	defaults *config.Config
	dataDir  string
	opener   uv.Opener
	images   *cache.Cache
	// samples feeds the exporter of collected samples, nil when collecting
	// is disabled.
	samples chan<- export.Sample
}

func NewPlotServer(cfg *config.Config, samples chan<- export.Sample) *PlotServer {
	return &PlotServer{
		defaults: cfg,
		dataDir:  cfg.Server.DataDir,
		opener:   uv.FileOpener,
		images:   cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL),
		samples:  samples,
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func (s *PlotServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())
	r.GET(filesEndpoint, s.filesHandler)
	r.GET(renderEndpoint, s.renderHandler)
	r.POST(export.CollectEndpoint, s.collectHandler)
	return r
}

func (s *PlotServer) filesHandler(c *gin.Context) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	files := []string{}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == uv.FileExtension {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// requestConfig applies the query parameters of c on top of the defaults.
func (s *PlotServer) requestConfig(c *gin.Context) (*config.Config, error) {
	cfg := *s.defaults
	strs := map[string]*string{
		"ant":       &cfg.Select.Ant,
		"pol":       &cfg.Select.Pol,
		"chan":      &cfg.Select.Chan,
		"time":      &cfg.Select.Time,
		"mode":      &cfg.Plot.Mode,
		"time_axis": &cfg.Plot.TimeAxis,
		"chan_axis": &cfg.Plot.ChanAxis,
	}
	for key, p := range strs {
		if v, ok := c.GetQuery(key); ok {
			*p = v
		}
	}
	ints := map[string]*int{
		"decimate": &cfg.Select.Decimate,
		"width":    &cfg.Plot.Width,
		"height":   &cfg.Plot.Height,
	}
	for key, p := range ints {
		if v, ok := c.GetQuery(key); ok {
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, &config.ValidationError{Field: key, Reason: err.Error()}
			}
			*p = n
		}
	}
	bools := map[string]*bool{
		"unmask":   &cfg.Transform.Unmask,
		"delay":    &cfg.Transform.Delay,
		"fringe":   &cfg.Transform.Fringe,
		"dt":       &cfg.Transform.DT,
		"df":       &cfg.Transform.DF,
		"sum_chan": &cfg.Transform.SumChan,
	}
	for key, p := range bools {
		if v, ok := c.GetQuery(key); ok {
			b, err := cast.ToBoolE(v)
			if err != nil {
				return nil, &config.ValidationError{Field: key, Reason: err.Error()}
			}
			*p = b
		}
	}
	floats := map[string]**float64{
		"clean":    &cfg.Transform.Clean,
		"plot_max": &cfg.Plot.PlotMax,
		"dyn_rng":  &cfg.Plot.DynRng,
	}
	for key, p := range floats {
		if v, ok := c.GetQuery(key); ok {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return nil, &config.ValidationError{Field: key, Reason: err.Error()}
			}
			*p = &f
		}
	}
	if cfg.Plot.Width > maxImageSide || cfg.Plot.Height > maxImageSide {
		return nil, &config.ValidationError{Field: "size", Reason: "image too large"}
	}
	return &cfg, nil
}

// requestFiles resolves the file parameters inside the data directory.
func (s *PlotServer) requestFiles(c *gin.Context) ([]string, error) {
	var files []string
	for _, param := range c.QueryArray("file") {
		for _, name := range strings.Split(param, ",") {
			if name == "" || name != filepath.Base(name) || filepath.Ext(name) != uv.FileExtension {
				return nil, &config.ValidationError{Field: "file", Reason: "not a visibility file in the data directory: " + name}
			}
			files = append(files, filepath.Join(s.dataDir, name))
		}
	}
	if len(files) == 0 {
		return nil, &config.ValidationError{Field: "file", Reason: "at least one file is required"}
	}
	return files, nil
}

func statusFor(err error) int {
	var (
		verr *config.ValidationError
		perr *axis.ParseError
		cerr *axis.ChannelRangeError
		aerr *display.AmbiguousAxisError
		terr *display.InvalidTimeAxisError
		merr *reduce.InvalidModeError
	)
	switch {
	case errors.Is(err, pipeline.ErrNoData), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &verr), errors.As(err, &perr), errors.As(err, &cerr), errors.As(err, &aerr), errors.As(err, &terr), errors.As(err, &merr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *PlotServer) render(ctx context.Context, cfg *config.Config, files []string) ([]byte, error) {
	res, err := pipeline.New(cfg, s.opener).Run(ctx, files)
	if err != nil {
		return nil, err
	}
	img, err := render.Render(res.Panels, &render.Options{
		Width:  cfg.Plot.Width,
		Height: cfg.Plot.Height,
		Legend: res.Legend,
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := render.Encode(&buf, img, render.FormatPNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *PlotServer) renderRequest(c *gin.Context) ([]byte, error) {
	cfg, err := s.requestConfig(c)
	if err != nil {
		return nil, err
	}
	files, err := s.requestFiles(c)
	if err != nil {
		return nil, err
	}
	return s.render(c.Request.Context(), cfg, files)
}

func (s *PlotServer) renderHandler(c *gin.Context) {
	key := c.Request.URL.Query().Encode()
	if img, ok := s.images.Get(key); ok {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, "image/png", img.([]byte))
		return
	}

	img, err := s.renderRequest(c)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			glog.Warningf("[%s] unable to render %q: %s", c.GetString(requestIDKey), key, err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.images.SetDefault(key, img)
	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "image/png", img)
}

func (s *PlotServer) collectHandler(c *gin.Context) {
	if s.samples == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "collecting samples is disabled on this server"})
		return
	}
	samples := []export.Sample{}
	if err := c.ShouldBindJSON(&samples); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, sample := range samples {
		if sample.Identifier == "" {
			sample.Identifier = c.GetString(requestIDKey)
		}
		select {
		case s.samples <- sample:
		case <-c.Request.Context().Done():
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
			return
		}
	}
	c.JSON(http.StatusOK, export.CollectResponse{Status: "ok", SampleCount: len(samples)})
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *configFile != "" {
		viper.SetConfigFile(*configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dataDir != "" {
		cfg.Server.DataDir = *dataDir
	}
	if *certFile != "" {
		cfg.Server.CertFile = *certFile
	}
	if *keyFile != "" {
		cfg.Server.KeyFile = *keyFile
	}
	if *output != "" {
		cfg.Export.Method = *output
	}
	if cfg.Export.Method == config.ExportServer {
		return nil, errors.New("a server cannot forward collected samples to another server")
	}
	return cfg, cfg.Validate()
}

func main() {
	ctx := context.Background()
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("invalid configuration: %s", err)
	}

	// Exporter setup
	exporter, closeExporter, err := export.FromConfig(&cfg.Export)
	if err != nil {
		glog.Exit(err)
	}
	defer closeExporter()
	var samples chan export.Sample
	if exporter != nil {
		samples = make(chan export.Sample, 1000)
		go func() {
			if err := exporter.Write(ctx, samples); err != nil {
				glog.Fatal(err)
			}
		}()
	}

	// Configure and run webserver.
	gin.SetMode(gin.ReleaseMode)
	s := NewPlotServer(cfg, samples)
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.CertFile != "" || cfg.Server.KeyFile != "" {
		glog.Fatal(srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile))
	} else {
		glog.Infoln("Resorting to serving HTTP because there was no certificate and key defined.")
		glog.Fatal(srv.ListenAndServe())
	}

	glog.Flush()
}
