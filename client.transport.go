package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// request describes a single round trip against the catalog service.
type request struct {
	method  string
	url     string
	body    interface{}
	token   string
	ifMatch string
}

// Transport executes requests for the book and token clients. It sets the
// common headers, throttles when a rate limit is configured and logs each
// round trip. It never retries.
type Transport struct {
	logger    *zap.Logger
	client    *http.Client
	limiter   *rate.Limiter
	ids       UIDHandler
	userAgent string
}

// NewTransport builds a Transport from the catalog configuration.
func NewTransport(logger *zap.Logger, config *CatalogConfig, ids UIDHandler) *Transport {
	client := &http.Client{Timeout: config.Timeout}
	if config.InsecureSkipVerify {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		client.Transport = tr
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Transport{
		logger:    logger,
		client:    client,
		limiter:   limiter,
		ids:       ids,
		userAgent: config.UserAgent,
	}
}

// Do sends the request and returns the response whatever its status.
// The caller owns the response body.
func (t *Transport) Do(ctx context.Context, r request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, err
	}

	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	if requestID == "" {
		requestID = t.ids.Generate(RequestIDPrefix)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.ifMatch != "" {
		req.Header.Set("If-Match", r.ifMatch)
	}

	if t.limiter != nil {
		if err = t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("request failed",
			zap.String("request.id", requestID),
			zap.String("request.method", r.method),
			zap.String("request.url", r.url),
			zap.Duration("request.duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	t.logger.Info("request",
		zap.String("request.id", requestID),
		zap.String("request.method", r.method),
		zap.String("request.url", r.url),
		zap.Int("response.status", resp.StatusCode),
		zap.Duration("request.duration", time.Since(start)),
	)
	return resp, nil
}

// check turns a non 2xx response into an *HTTPError. The body of a failed
// response is drained and closed.
func check(resp *http.Response, op string, id int) error {
	if IsSuccess(resp.StatusCode) {
		return nil
	}
	drain(resp)
	return newHTTPError(op, resp.StatusCode, id)
}

// buffer reads the whole body into memory so the connection is released
// and the caller may read it without having to close it.
func buffer(resp *http.Response) (*http.Response, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
