package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Resolution failures. Resolve wraps exactly one of them.
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrUnsupportedDomain = errors.New("unsupported domain")
	ErrNotFound          = errors.New("article not found")
	ErrGenerationFailure = errors.New("mirror generation failed")
)

// Registry looks up the mirror host of a source hostname.
type Registry interface {
	Lookup(hostname string) (string, bool)
}

// Checker reports whether an article URL exists.
type Checker interface {
	Probe(ctx context.Context, rawURL string) ProbeResult
}

// URLShortener produces the final mirror URL. It must not fail.
type URLShortener interface {
	Shorten(ctx context.Context, rawURL string, u *url.URL, mirrorHost string) string
}

// Resolver runs the mirror resolution pipeline.
type Resolver struct {
	registry  Registry
	checker   Checker
	shortener URLShortener
	log       *slog.Logger
}

// NewResolver creates a Resolver from its stages.
func NewResolver(registry Registry, checker Checker, shortener URLShortener, log *slog.Logger) *Resolver {
	return &Resolver{
		registry:  registry,
		checker:   checker,
		shortener: shortener,
		log:       log,
	}
}

// Resolve returns the mirror URL for rawURL. On failure the error wraps one of
// ErrInvalidURL, ErrUnsupportedDomain, ErrNotFound or ErrGenerationFailure.
// An inconclusive probe does not block resolution.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	u, err := Parse(rawURL)
	if err != nil {
		r.log.Info("invalid url", "url", rawURL, "error", err)
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	host := hostOf(u)
	mirrorHost, ok := r.registry.Lookup(host)
	if !ok {
		r.log.Info("host not in registry", "host", host)
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDomain, host)
	}

	probe := r.checker.Probe(ctx, rawURL)
	r.log.Debug("probed article", "url", rawURL, "result", probe)
	if probe == ProbeNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}

	mirrorURL, err := r.shorten(ctx, rawURL, u, mirrorHost)
	if err != nil {
		r.log.Error("generate mirror url", "url", rawURL, "error", err)
		return "", err
	}
	return mirrorURL, nil
}

func (r *Resolver) shorten(ctx context.Context, rawURL string, u *url.URL, mirrorHost string) (mirrorURL string, err error) {
	defer func() {
		if p := recover(); p != nil {
			mirrorURL = ""
			err = fmt.Errorf("%w: panic: %v", ErrGenerationFailure, p)
		}
	}()

	mirrorURL = r.shortener.Shorten(ctx, rawURL, u, mirrorHost)
	if !IsValidURL(mirrorURL) {
		return "", fmt.Errorf("%w: unusable result %q", ErrGenerationFailure, mirrorURL)
	}
	return mirrorURL, nil
}
