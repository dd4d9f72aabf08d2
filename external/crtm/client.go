package crtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twetter99/afluencia360/schema"
)

// Client pushes export payloads to the CRTM ingestion endpoint over HTTPS.
// SFTP delivery stays manual; this client covers the API delivery mode.
type Client struct {
	apiEndpoint string
	apiKey      string
	client      *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	u, _ := url.Parse(endpoint)

	apiEndpoint := &url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   u.Path,
	}

	return &Client{
		apiEndpoint: apiEndpoint.String(),
		apiKey:      apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type deliveryRequest struct {
	Connector string        `json:"connector"`
	DatasetID string        `json:"datasetId"`
	Period    schema.Period `json:"period"`
	Format    string        `json:"format"`
	Filename  string        `json:"filename"`
	Checksum  string        `json:"checksum"`
	Payload   string        `json:"payload"`
}

// Deliver posts one finished run. Any non-2xx response is an error.
func (c *Client) Deliver(ctx context.Context, run schema.ExportRun) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(deliveryRequest{
		Connector: run.Connector,
		DatasetID: run.DatasetID,
		Period:    run.Period,
		Format:    run.Format,
		Filename:  run.Filename,
		Checksum:  run.Checksum,
		Payload:   run.Payload,
	}); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/datasets", c.apiEndpoint), &body)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deliver %s: unexpected status %d", run.Filename, resp.StatusCode)
	}
	return nil
}
