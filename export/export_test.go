package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/plotuv/config"
	"github.com/hb9tf/plotuv/display"
	"github.com/hb9tf/plotuv/marray"
)

func testPanels() []*display.Panel {
	data := marray.NewReal(2, 2)
	copy(data.Data, []float64{1, 2, 3, 4})
	data.Mask = []bool{false, true, false, false}
	return []*display.Panel{
		{
			Title:     "0,1",
			Layout:    display.LayoutImage,
			Data:      data,
			RowCoords: []float64{10, 11},
			ColCoords: []float64{0.1, 0.2},
		},
		{
			Title:  "1,2",
			Layout: display.LayoutTimeLines,
			Lines: []display.Line{
				{Label: "#3", X: []float64{0, 1, 2}, Y: []float64{5, math.NaN(), 7}},
			},
		},
	}
}

func collect(ch <-chan Sample) []Sample {
	var out []Sample
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestStream(t *testing.T) {
	samples := collect(Stream(context.Background(), "run", "lin", testPanels()))
	require.Len(t, samples, 7)

	assert.Equal(t, Sample{Identifier: "run", Baseline: "0,1", Mode: "lin", Row: 0, Col: 1, X: 0.2, Y: 10, Value: 2, Masked: true}, samples[1])
	assert.Equal(t, Sample{Identifier: "run", Baseline: "0,1", Mode: "lin", Row: 1, Col: 0, X: 0.1, Y: 11, Value: 3}, samples[2])

	line := samples[4:]
	assert.Equal(t, "#3", line[0].Series)
	assert.Equal(t, 5.0, line[0].Value)
	assert.True(t, line[1].Masked)
	assert.Equal(t, 0.0, line[1].Value)
	assert.Equal(t, 2.0, line[2].X)
}

func TestStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	samples := collect(Stream(ctx, "run", "lin", testPanels()))
	// The buffered channel may accept some samples before cancellation is seen.
	assert.LessOrEqual(t, len(samples), 7)
}

func largePanel(n int) []*display.Panel {
	return []*display.Panel{{
		Title:  "0,1",
		Layout: display.LayoutImage,
		Data:   marray.NewReal(n, n),
	}}
}

// giveUp returns without reading a single sample.
type giveUp struct {
	samples <-chan Sample
}

func (g *giveUp) Write(_ context.Context, samples <-chan Sample) error {
	g.samples = samples
	return errors.New("unavailable")
}

// exportWithTimeout fails the test if Panels does not return.
func exportWithTimeout(t *testing.T, e Exporter) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- Panels(context.Background(), e, "run", "lin", largePanel(40))
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("export did not return")
		return nil
	}
}

func TestPanelsStopsProducerWhenExporterGivesUp(t *testing.T) {
	g := &giveUp{}
	err := exportWithTimeout(t, g)
	assert.EqualError(t, err, "unavailable")
	_, ok := <-g.samples
	assert.False(t, ok, "sample channel is closed")
}

func TestPanelsSQLiteUnavailable(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = exportWithTimeout(t, &SQLite{DB: db})
	assert.ErrorContains(t, err, "unable to create table")
}

func TestPanelsDeliversEverySample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exportWithTimeout(t, &CSV{Out: &buf}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1+40*40)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	c := &CSV{Out: &buf}
	require.NoError(t, c.Write(context.Background(), Stream(context.Background(), "run", "lin", testPanels())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, "Identifier", records[0][0])
	assert.Equal(t, []string{"run", "0,1", "lin", "", "0", "1", "0.2", "10", "2", "true"}, records[2])
}

func TestSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "plotuv.db"))
	require.NoError(t, err)
	defer db.Close()

	s := &SQLite{DB: db}
	require.NoError(t, s.Write(context.Background(), Stream(context.Background(), "run", "lin", testPanels())))

	var total, masked int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM plotuv WHERE Identifier = ?`, "run").Scan(&total))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM plotuv WHERE Masked = 1`).Scan(&masked))
	assert.Equal(t, 7, total)
	assert.Equal(t, 2, masked)

	var value float64
	require.NoError(t, db.QueryRow(`SELECT Value FROM plotuv WHERE Baseline = ? AND RowIdx = 1 AND ColIdx = 1`, "0,1").Scan(&value))
	assert.Equal(t, 4.0, value)
}

func TestServer(t *testing.T) {
	var mu sync.Mutex
	var got []Sample
	batches := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, CollectEndpoint, r.URL.Path)
		var batch []Sample
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		mu.Lock()
		batches++
		got = append(got, batch...)
		mu.Unlock()
		json.NewEncoder(w).Encode(CollectResponse{Status: "ok", SampleCount: len(batch)})
	}))
	defer ts.Close()

	s := &Server{Server: ts.URL + "/", SendSamplesAmount: 3}
	require.NoError(t, s.Write(context.Background(), Stream(context.Background(), "run", "lin", testPanels())))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, batches)
	assert.Len(t, got, 7)
}

func TestServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := &Server{Server: ts.URL}
	err := s.Write(context.Background(), Stream(context.Background(), "run", "lin", testPanels()))
	assert.ErrorContains(t, err, "7 samples could not be sent")
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Export

	e, closeFn, err := FromConfig(&cfg)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, closeFn())

	cfg.Method = "CSV"
	e, _, err = FromConfig(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, e)

	cfg.Method = config.ExportSQLite
	cfg.SQLiteFile = filepath.Join(t.TempDir(), "plotuv.db")
	e, closeFn, err = FromConfig(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, e)
	assert.NoError(t, closeFn())

	cfg.Method = config.ExportMySQL
	cfg.MySQLPasswordFile = filepath.Join(t.TempDir(), "missing")
	_, _, err = FromConfig(&cfg)
	assert.ErrorContains(t, err, "password file")

	cfg.Method = "elastic"
	_, _, err = FromConfig(&cfg)
	assert.Error(t, err)
}
