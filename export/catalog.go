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
	"github.com/pkg/errors"

	"github.com/hb9tf/sweeprx/sdr"
)

const (
	contentType         = "application/json"
	CollectEndpoint     = "sweeprx/v1/collect"
	defaultSendSegments = 10
)

// CollectResponse is returned by the catalog server for every batch.
type CollectResponse struct {
	Status       string `json:"status"`
	SegmentCount int    `json:"segmentCount"`
}

// CatalogServer posts batches of segments to a catalog server.
type CatalogServer struct {
	Server       string
	SendSegments int
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (s *CatalogServer) Write(ctx context.Context, segments <-chan sdr.Segment) error {
	sendSegments := defaultSendSegments
	if s.SendSegments > 0 {
		sendSegments = s.SendSegments
	}

	var toSend []sdr.Segment
	for seg := range segments {
		toSend = append(toSend, seg)
		if len(toSend) < sendSegments {
			continue // we haven't collected enough segments to send yet
		}
		if err := s.send(ctx, toSend); err != nil {
			glog.Warningf("error submitting segments: %s\n", err)
		}
		toSend = nil
	}
	// The sweep is over, flush what is left.
	if len(toSend) > 0 {
		if err := s.send(ctx, toSend); err != nil {
			glog.Warningf("error submitting segments: %s\n", err)
		}
	}
	return nil
}

func (s *CatalogServer) send(ctx context.Context, segments []sdr.Segment) error {
	body, err := json.Marshal(segments)
	if err != nil {
		return errors.Wrap(err, "error marshalling segments to JSON")
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(s.Server, "/"), CollectEndpoint)
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, url, bytes.NewReader(body))
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
		return errors.Wrap(err, "error POSTing segments")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "error reading POST body")
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("server %s returned %s: %s", s.Server, resp.Status, strings.TrimSpace(string(respBody)))
	}
	collectResponseBody := CollectResponse{}
	json.Unmarshal(respBody, &collectResponseBody)
	glog.Infof("submitted %v segments to server %s", collectResponseBody.SegmentCount, s.Server)
	return nil
}
