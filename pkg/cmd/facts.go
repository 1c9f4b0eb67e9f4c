package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dukex/crate/pkg/facts"
	"github.com/spf13/cast"
)

// NewFactProvider selects the fact source by URL scheme. An empty URL or
// static://?price=..&balance=.. yields a fixed snapshot; redis:// reads the
// facts hashes. The returned func releases the provider's resources.
//
//nolint:ireturn
func NewFactProvider(ctx context.Context, logger *slog.Logger, factsURL string) (facts.Provider, func() error) {
	switch {
	case strings.HasPrefix(factsURL, "redis://"), strings.HasPrefix(factsURL, "rediss://"):
		provider, err := facts.NewRedis(ctx, logger, factsURL)
		if err != nil {
			panic(fmt.Errorf("failed to create redis fact provider: %w", err))
		}

		return provider, provider.Close
	case factsURL == "", strings.HasPrefix(factsURL, "static://"):
		provider, err := newStaticProvider(factsURL)
		if err != nil {
			panic(err)
		}

		return provider, func() error { return nil }
	default:
		panic("Unsupported facts provider: " + factsURL)
	}
}

func newStaticProvider(factsURL string) (*facts.Static, error) {
	u, err := url.Parse(factsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid facts url: %w", err)
	}

	query := u.Query()

	price, err := cast.ToFloat64E(query.Get("price"))
	if err != nil && query.Has("price") {
		return nil, fmt.Errorf("invalid static price %q: %w", query.Get("price"), err)
	}

	balance, err := cast.ToFloat64E(query.Get("balance"))
	if err != nil && query.Has("balance") {
		return nil, fmt.Errorf("invalid static balance %q: %w", query.Get("balance"), err)
	}

	return facts.NewStatic(price, balance, nil), nil
}
