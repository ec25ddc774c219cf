// Package webhooks notifies external endpoints after a merge commits.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lherron/transplant/internal/merge"
)

const (
	defaultTimeout     = 2 * time.Second
	defaultConcurrency = 4
)

// Payload is the JSON body posted for a committed merge.
type Payload struct {
	Event            string                  `json:"event"`
	ReceiverID       string                  `json:"receiver_id"`
	ReceiverUUID     string                  `json:"receiver_uuid"`
	DonorID          string                  `json:"donor_id"`
	DonorUUID        string                  `json:"donor_uuid"`
	DonorDeactivated bool                    `json:"donor_deactivated"`
	Reassigned       int64                   `json:"reassigned"`
	Operations       []merge.OperationReport `json:"operations"`
}

// NewPayload builds the payload for a committed merge report.
func NewPayload(rep *merge.Report) Payload {
	p := Payload{
		Event:            "account.merged",
		ReceiverID:       rep.Receiver.ID,
		ReceiverUUID:     rep.Receiver.UUID,
		DonorID:          rep.Donor.ID,
		DonorUUID:        rep.Donor.UUID,
		DonorDeactivated: rep.DonorDeactivated,
		Operations:       rep.Operations,
	}
	for _, op := range rep.Operations {
		p.Reassigned += op.Reassigned
	}
	return p
}

// Delivery is the outcome of posting to one endpoint.
type Delivery struct {
	URL    string
	Status int
	Err    error
}

// Dispatcher posts payloads to endpoints with bounded concurrency.
type Dispatcher struct {
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil logger selects slog.Default.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:      &http.Client{Timeout: defaultTimeout},
		concurrency: defaultConcurrency,
		logger:      logger,
	}
}

// ResolveTargets templates, normalizes, validates and de-dupes configured
// URLs. "{donor_id}" and "{receiver_id}" are replaced from the payload.
func (d *Dispatcher) ResolveTargets(urls []string, payload Payload) []string {
	if len(urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(urls))
	var normalized []string
	for _, raw := range urls {
		templated := strings.TrimSpace(applyTemplate(strings.TrimSpace(raw), payload))
		templated = strings.TrimRight(templated, "/")
		if templated == "" {
			continue
		}
		if !isValidWebhookURL(templated) {
			d.logger.Warn("skipping invalid webhook url", "url", templated)
			continue
		}
		if _, ok := seen[templated]; ok {
			continue
		}
		seen[templated] = struct{}{}
		normalized = append(normalized, templated)
	}
	return normalized
}

// Dispatch posts payload to every resolved target. Failures are logged and
// reported per endpoint; they never affect the committed merge.
func (d *Dispatcher) Dispatch(ctx context.Context, urls []string, payload Payload) []Delivery {
	targets := d.ResolveTargets(urls, payload)
	if len(targets) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("failed to encode webhook payload", "error", err)
		return nil
	}

	deliveries := make([]Delivery, len(targets))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			deliveries[i] = d.send(ctx, target, body)
			return nil
		})
	}
	_ = g.Wait()

	for _, dl := range deliveries {
		if dl.Err != nil {
			d.logger.Warn("webhook delivery failed", "url", dl.URL, "error", dl.Err)
		} else {
			d.logger.Debug("webhook delivered", "url", dl.URL, "status", dl.Status)
		}
	}
	return deliveries
}

func (d *Dispatcher) send(ctx context.Context, endpoint string, body []byte) Delivery {
	dl := Delivery{URL: endpoint}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		dl.Err = fmt.Errorf("build request: %w", err)
		return dl
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		dl.Err = err
		return dl
	}
	_ = resp.Body.Close()

	dl.Status = resp.StatusCode
	if resp.StatusCode >= 300 {
		dl.Err = fmt.Errorf("unexpected status %s", resp.Status)
	}
	return dl
}

func applyTemplate(raw string, payload Payload) string {
	result := strings.ReplaceAll(raw, "{donor_id}", payload.DonorID)
	return strings.ReplaceAll(result, "{receiver_id}", payload.ReceiverID)
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
