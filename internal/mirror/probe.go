package mirror

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ProbeResult is the outcome of an existence check.
type ProbeResult int

// Possible probe outcomes. ProbeUnknown is the zero value.
const (
	ProbeUnknown ProbeResult = iota
	ProbeExists
	ProbeNotFound
)

func (r ProbeResult) String() string {
	switch r {
	case ProbeExists:
		return "exists"
	case ProbeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// DefaultProbeTimeout bounds a single existence check.
const DefaultProbeTimeout = 5 * time.Second

// Prober checks whether an article URL is still served by its origin.
type Prober struct {
	client  HTTPClient
	timeout time.Duration
	log     *slog.Logger
}

// NewProber creates a Prober. A non-positive timeout selects DefaultProbeTimeout.
func NewProber(client HTTPClient, timeout time.Duration, log *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{client: client, timeout: timeout, log: log}
}

// Probe issues a HEAD request against rawURL. Only a 404 is authoritative
// for ProbeNotFound; other statuses, transport errors and timeouts yield
// ProbeUnknown.
func (p *Prober) Probe(ctx context.Context, rawURL string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		p.log.Warn("build probe request", "url", rawURL, "error", err)
		return ProbeUnknown
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("probe url", "url", rawURL, "error", err)
		return ProbeUnknown
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ProbeNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ProbeExists
	default:
		p.log.Debug("probe inconclusive", "url", rawURL, "status", resp.StatusCode)
		return ProbeUnknown
	}
}
