package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang/glog"
)

const (
	contentType             = "application/json"
	CollectEndpoint         = "/plotuv/v1/collect"
	defaultSendSampleAmount = 1000
)

// CollectResponse is returned by the collect endpoint of a plotuv server.
type CollectResponse struct {
	Status      string `json:"status"`
	SampleCount int    `json:"sampleCount"`
}

// Server sends samples in JSON batches to a remote plotuv server.
type Server struct {
	Server            string
	SendSamplesAmount int
	Client            *http.Client
}

func (s *Server) send(ctx context.Context, batch []Sample) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("error marshalling samples to JSON: %w", err)
	}
	url := strings.TrimRight(s.Server, "/") + CollectEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error POSTing samples: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading POST body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server %s returned %s: %s", s.Server, resp.Status, strings.TrimSpace(string(respBody)))
	}

	collectResponseBody := CollectResponse{}
	json.Unmarshal(respBody, &collectResponseBody)
	glog.V(1).Infof("submitted %v samples to server %s", collectResponseBody.SampleCount, s.Server)
	return nil
}

func (s *Server) Write(ctx context.Context, samples <-chan Sample) error {
	sendSamplesAmount := defaultSendSampleAmount
	if s.SendSamplesAmount > 0 {
		sendSamplesAmount = s.SendSamplesAmount
	}

	var failed int
	var samplesToSend []Sample
	flush := func() {
		if len(samplesToSend) == 0 {
			return
		}
		if err := s.send(ctx, samplesToSend); err != nil {
			failed += len(samplesToSend)
			glog.Warning(err)
		}
		samplesToSend = nil
	}
	for sample := range samples {
		samplesToSend = append(samplesToSend, sample)
		if len(samplesToSend) < sendSamplesAmount {
			continue // we haven't collected enough samples to send yet
		}
		flush()
	}
	flush()

	if failed > 0 {
		return fmt.Errorf("%d samples could not be sent to %s", failed, s.Server)
	}
	return nil
}
