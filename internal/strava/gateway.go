package strava

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/2beens/stravainsights/internal/telemetry/metrics"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultAPIBaseURL = "https://www.strava.com/api/v3"
	maxResponseBytes  = 16 << 20
)

//go:generate mockgen -source=$GOFILE -destination=gateway_mocks_test.go -package=strava_test

type tokenProvider interface {
	EnsureFresh(ctx context.Context, creds *Credentials) (string, error)
	ForceRefresh(ctx context.Context, creds *Credentials) (string, error)
}

// Gateway performs bearer authenticated calls against the upstream api.
// A 401 triggers exactly one forced token refresh and one retry.
type Gateway struct {
	baseURL        string
	httpClient     *http.Client
	tokens         tokenProvider
	metricsManager *metrics.Manager
}

func NewGateway(
	baseURL string,
	httpClient *http.Client,
	tokens tokenProvider,
	metricsManager *metrics.Manager,
) *Gateway {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Gateway{
		baseURL:        baseURL,
		httpClient:     httpClient,
		tokens:         tokens,
		metricsManager: metricsManager,
	}
}

func (g *Gateway) Call(
	ctx context.Context,
	creds *Credentials,
	method, path string,
	params url.Values,
) (_ []byte, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.gateway.call")
	span.SetAttributes(
		attribute.String("upstream.method", method),
		attribute.String("upstream.path", path),
	)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	accessToken, err := g.tokens.EnsureFresh(ctx, creds)
	if err != nil {
		return nil, err
	}

	statusCode, body, err := g.do(ctx, accessToken, method, path, params)
	if err != nil {
		return nil, err
	}

	if statusCode == http.StatusUnauthorized {
		log.Debugf("gateway: upstream 401 for user %d on %s, refreshing token once", creds.UserID, path)
		accessToken, err = g.tokens.ForceRefresh(ctx, creds)
		if err != nil {
			return nil, err
		}

		statusCode, body, err = g.do(ctx, accessToken, method, path, params)
		if err != nil {
			return nil, err
		}
	}

	if statusCode >= 200 && statusCode < 300 {
		return body, nil
	}

	kind := errorKindForStatus(statusCode)
	if errors.Is(kind, ErrUpstreamServer) || errors.Is(kind, ErrUpstreamBadStatus) {
		log.Errorf("gateway: upstream %s %s -> %d: %s", method, path, statusCode, truncate(body, 256))
	}
	return nil, &StatusError{StatusCode: statusCode, Kind: kind}
}

func (g *Gateway) do(
	ctx context.Context,
	accessToken, method, path string,
	params url.Values,
) (int, []byte, error) {
	reqURL := g.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("new upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		kind := classifyTransportErr(err)
		g.countCall(kindLabel(kind))
		return 0, nil, fmt.Errorf("%w: %w", kind, err)
	}
	defer resp.Body.Close()

	g.countCall(strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		kind := classifyTransportErr(err)
		return 0, nil, fmt.Errorf("%w: read body: %w", kind, err)
	}

	return resp.StatusCode, body, nil
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrUpstreamTimeout
	}
	return ErrUpstreamUnreachable
}

func kindLabel(kind error) string {
	if errors.Is(kind, ErrUpstreamTimeout) {
		return "timeout"
	}
	return "unreachable"
}

func (g *Gateway) countCall(status string) {
	if g.metricsManager == nil {
		return
	}
	g.metricsManager.CounterUpstreamCalls.WithLabelValues(status).Inc()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
