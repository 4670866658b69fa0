// Package redisclient builds go-redis clients from a connection URL.
package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Options parses a redis:// or rediss:// URL. When tlsInsecure is set the
// server certificate is not verified.
func Options(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsInsecure {
		if opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		opts.TLSConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for managed redis with self-signed certs
	}
	return opts, nil
}

// Ping opens a short-lived client and checks the server answers.
func Ping(ctx context.Context, redisURL string, tlsInsecure bool) error {
	opts, err := Options(redisURL, tlsInsecure)
	if err != nil {
		return err
	}
	client := redis.NewClient(opts)
	defer client.Close()
	return client.Ping(ctx).Err()
}
