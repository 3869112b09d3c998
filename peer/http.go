package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	contentType  = "application/json"
	peerEndpoint = "sweeprx/v1/peer"
)

// Message is the body POSTed to an HTTP peer.
type Message struct {
	Identifier string `json:"identifier"`
	Signal     Signal `json:"signal"`
}

// HTTP posts signals as JSON to <Server>/sweeprx/v1/peer.
type HTTP struct {
	Server     string
	Identifier string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (h *HTTP) NotifyAdvance(ctx context.Context) error {
	return h.post(ctx, Advance)
}

func (h *HTTP) NotifyAbort(ctx context.Context) error {
	return h.post(ctx, Abort)
}

func (h *HTTP) post(ctx context.Context, sig Signal) error {
	body, err := json.Marshal(Message{Identifier: h.Identifier, Signal: sig})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(h.Server, "/"), peerEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error POSTing %s to peer", sig)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("peer answered %s to %s", resp.Status, sig)
	}
	glog.V(1).Infof("notified peer %s: %s", h.Server, sig)
	return nil
}
