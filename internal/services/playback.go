package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"clipsify/internal/metrics"

	"go.uber.org/zap"
)

// transformationPrefix marks a path segment that carries CDN transformation directives.
const transformationPrefix = "tr:"

// URLSigner is implemented by *cdn.Client.
type URLSigner interface {
	Configured() bool
	SignedURL(src string, expiresIn time.Duration) (string, error)
}

type Cache interface {
	Set(ctx context.Context, key string, val string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type PlaybackResolver struct {
	signer   URLSigner
	cache    Cache // optional
	expiry   time.Duration
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewPlaybackResolver(signer URLSigner, cache Cache, expiry, cacheTTL time.Duration, log *zap.Logger) *PlaybackResolver {
	return &PlaybackResolver{signer: signer, cache: cache, expiry: expiry, cacheTTL: cacheTTL, log: log}
}

func (r *PlaybackResolver) Configured() bool { return r.signer.Configured() }

// Resolve turns a stored video URL into a signed playback URL for the original,
// untransformed asset.
func (r *PlaybackResolver) Resolve(ctx context.Context, videoURL string) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", fmt.Errorf("%w: Missing video URL", ErrValidation)
	}
	clean := NormalizeVideoURL(videoURL)
	key := "playback:" + clean

	if r.cache != nil && r.cacheTTL > 0 {
		if cached, err := r.cache.Get(ctx, key); err != nil {
			r.log.Warn("playback cache get", zap.Error(err))
		} else if cached != "" {
			metrics.PlaybackCache.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.PlaybackCache.WithLabelValues("miss").Inc()
	}

	signed, err := r.signer.SignedURL(clean, r.expiry)
	if err != nil {
		return "", fmt.Errorf("sign playback url: %w", err)
	}
	if r.cache != nil && r.cacheTTL > 0 {
		if err := r.cache.Set(ctx, key, signed, r.cacheTTL); err != nil {
			r.log.Warn("playback cache set", zap.Error(err))
		}
	}
	return signed, nil
}

// NormalizeVideoURL drops the query string, the fragment and every path segment
// starting with "tr:". Input that does not parse as an absolute URL is returned
// unchanged.
func NormalizeVideoURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	parts := strings.Split(u.EscapedPath(), "/")
	kept := parts[:0]
	for _, p := range parts {
		if strings.HasPrefix(p, transformationPrefix) {
			continue
		}
		kept = append(kept, p)
	}
	escaped := strings.Join(kept, "/")
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path = unescaped
		u.RawPath = escaped
	}
	return u.String()
}
