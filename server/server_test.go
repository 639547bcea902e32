package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hb9tf/plotuv/config"
	"github.com/hb9tf/plotuv/export"
	"github.com/hb9tf/plotuv/uv"
)

func writeTestFile(t *testing.T, dir, name string) {
	t.Helper()
	meta := uv.Metadata{Source: "zen", NChan: 8, SFreq: 0.1, SDF: 0.1 / 8, IntTime: 10}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	w, err := uv.NewWriter(f, meta)
	require.NoError(t, err)
	for ti := 0; ti < 6; ti++ {
		for _, bl := range []uv.Baseline{{I: 0, J: 1}, {I: 1, J: 2}} {
			samples := make([]complex128, meta.NChan)
			for c := range samples {
				samples[c] = complex(float64(ti+1), float64(c))
			}
			require.NoError(t, w.Write(&uv.Record{
				Baseline:     bl,
				Polarization: "xx",
				Time:         2455000 + float64(ti)/8640,
				Samples:      samples,
			}))
		}
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())
}

func testServer(t *testing.T, samples chan<- export.Sample) (*PlotServer, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	writeTestFile(t, dir, "zen.2455000.uvb")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Server.DataDir = dir
	s := NewPlotServer(cfg, samples)
	return s, s.Router()
}

func get(r http.Handler, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestFiles(t *testing.T) {
	_, r := testServer(t, nil)
	w := get(r, filesEndpoint)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"zen.2455000.uvb"}, body.Files)
}

func TestRender(t *testing.T) {
	s, r := testServer(t, nil)
	url := renderEndpoint + "?file=zen.2455000.uvb&mode=lin&width=320&height=200"
	w := get(r, url)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	w = get(r, url)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, s.images.ItemCount())
}

func TestRenderLines(t *testing.T) {
	_, r := testServer(t, nil)
	w := get(r, renderEndpoint+"?file=zen.2455000.uvb&chan=3&delay=true&width=320&height=200")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRenderErrors(t *testing.T) {
	_, r := testServer(t, nil)
	tests := []struct {
		desc   string
		query  string
		status int
	}{
		{desc: "no file", query: "", status: http.StatusBadRequest},
		{desc: "path traversal", query: "?file=../zen.2455000.uvb", status: http.StatusBadRequest},
		{desc: "wrong suffix", query: "?file=notes.txt", status: http.StatusBadRequest},
		{desc: "missing file", query: "?file=zen.1.uvb", status: http.StatusNotFound},
		{desc: "bad channel", query: "?file=zen.2455000.uvb&chan=a_b", status: http.StatusBadRequest},
		{desc: "infinite channel range", query: "?file=zen.2455000.uvb&chan=0_inf", status: http.StatusBadRequest},
		{desc: "channel range past axis", query: "?file=zen.2455000.uvb&chan=0_1e12", status: http.StatusBadRequest},
		{desc: "bad mode", query: "?file=zen.2455000.uvb&mode=amp", status: http.StatusBadRequest},
		{desc: "bad bool", query: "?file=zen.2455000.uvb&delay=maybe", status: http.StatusBadRequest},
		{desc: "delay and fringe", query: "?file=zen.2455000.uvb&delay=1&fringe=1", status: http.StatusBadRequest},
		{desc: "ambiguous axes", query: "?file=zen.2455000.uvb&chan=1&time=2", status: http.StatusBadRequest},
		{desc: "too large", query: "?file=zen.2455000.uvb&width=100000", status: http.StatusBadRequest},
		{desc: "no data", query: "?file=zen.2455000.uvb&ant=auto", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		w := get(r, renderEndpoint+tc.query)
		assert.Equal(t, tc.status, w.Code, "%s: %s", tc.desc, w.Body.String())
	}
}

func TestCollect(t *testing.T) {
	samples := make(chan export.Sample, 10)
	_, r := testServer(t, samples)

	body, err := json.Marshal([]export.Sample{
		{Identifier: "run", Baseline: "0,1", Mode: "lin", Value: 1},
		{Baseline: "0,1", Mode: "lin", Value: 2},
	})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, export.CollectEndpoint, bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp export.CollectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.SampleCount)

	first, second := <-samples, <-samples
	assert.Equal(t, "run", first.Identifier)
	assert.Equal(t, w.Header().Get("X-Request-Id"), second.Identifier)
}

func TestCollectDisabled(t *testing.T) {
	_, r := testServer(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, export.CollectEndpoint, bytes.NewReader([]byte("[]"))))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
