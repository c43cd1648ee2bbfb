// Package mlflow implements registry.Client against the REST API of an
// MLflow tracking server.
//
// Transient failures (transport errors and 5xx responses) are retried
// once per request. 4xx responses are not retried.
package mlflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cardops/shiplane/pkg/domain/registry"
	xe "github.com/cardops/shiplane/pkg/errors"
	"github.com/cenkalti/backoff/v4"
)

const apiPrefix = "/api/2.0/mlflow"

type Client struct {
	endpoint string
	model    string
	stage    string
	metric   string
	hc       *http.Client
	policy   func() backoff.BackOff
}

var _ registry.Client = &Client{}

type Option func(*Client) *Client

// WithStage sets the promoted stage label ResolveProduction looks for.
func WithStage(label string) Option {
	return func(c *Client) *Client {
		c.stage = label
		return c
	}
}

// WithMetric sets the metric name recorded into download manifests.
func WithMetric(name string) Option {
	return func(c *Client) *Client {
		c.metric = name
		return c
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) *Client {
		c.hc = hc
		return c
	}
}

// WithRetry overrides the retry policy. The factory is invoked once per
// API request.
func WithRetry(policy func() backoff.BackOff) Option {
	return func(c *Client) *Client {
		c.policy = policy
		return c
	}
}

// New creates a Client for the tracking server at endpoint, scoped to
// the registered model named model.
func New(endpoint string, model string, options ...Option) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		stage:    "Production",
		metric:   "f1_score",
		hc:       &http.Client{Transport: tr},
		policy:   defaultPolicy,
	}
	for _, opt := range options {
		c = opt(c)
	}
	return c
}

func defaultPolicy() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return backoff.WithMaxRetries(bo, 1)
}

type httpError struct {
	status int
	detail string
}

func (e httpError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("mlflow: unexpected status %d", e.status)
	}
	return fmt.Sprintf("mlflow: unexpected status %d: %s", e.status, e.detail)
}

func statusOf(err error) (int, bool) {
	he := httpError{}
	if errors.As(err, &he) {
		return he.status, true
	}
	return 0, false
}

// call GETs an API endpoint and decodes the JSON response into `into`.
func (c *Client) call(ctx context.Context, path string, query url.Values, into any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, c.endpoint+path+"?"+query.Encode(), nil,
		)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return httpError{status: resp.StatusCode}
		}
		if resp.StatusCode >= 300 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(httpError{
				status: resp.StatusCode, detail: strings.TrimSpace(string(detail)),
			})
		}

		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(c.policy(), ctx))
}

type modelVersion struct {
	Version      string `json:"version"`
	CurrentStage string `json:"current_stage"`
	RunId        string `json:"run_id"`
}

func (c *Client) ResolveProduction(ctx context.Context, modelName string) (string, string, error) {
	q := url.Values{}
	q.Set("filter", fmt.Sprintf("name='%s'", modelName))
	q.Set("max_results", "200")

	res := struct {
		ModelVersions []modelVersion `json:"model_versions"`
	}{}
	if err := c.call(ctx, apiPrefix+"/model-versions/search", q, &res); err != nil {
		if status, ok := statusOf(err); ok && status == http.StatusNotFound {
			return "", "", xe.Wrap(registry.NotFound{Model: modelName, Stage: c.stage})
		}
		return "", "", xe.Wrap(err)
	}

	found, ok := modelVersion{}, false
	for _, mv := range res.ModelVersions {
		if mv.CurrentStage != c.stage {
			continue
		}
		if !ok || laterVersion(mv.Version, found.Version) {
			found, ok = mv, true
		}
	}
	if !ok {
		return "", "", xe.Wrap(registry.NotFound{Model: modelName, Stage: c.stage})
	}
	return found.Version, found.RunId, nil
}

// laterVersion reports whether version a is newer than b. Registry
// versions are numeric strings, so compare numerically when both parse.
func laterVersion(a string, b string) bool {
	na, aerr := strconv.Atoi(a)
	nb, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return na > nb
	}
	return a > b
}

func (c *Client) FetchMetric(ctx context.Context, runId string, metricName string) (float64, error) {
	q := url.Values{}
	q.Set("run_id", runId)

	res := struct {
		Run struct {
			Data struct {
				Metrics []struct {
					Key   string  `json:"key"`
					Value float64 `json:"value"`
				} `json:"metrics"`
			} `json:"data"`
		} `json:"run"`
	}{}
	if err := c.call(ctx, apiPrefix+"/runs/get", q, &res); err != nil {
		if status, ok := statusOf(err); ok && status == http.StatusNotFound {
			return 0, xe.Wrap(registry.MetricMissing{RunId: runId, Metric: metricName})
		}
		return 0, xe.Wrap(err)
	}

	for _, m := range res.Run.Data.Metrics {
		if m.Key == metricName {
			return m.Value, nil
		}
	}
	return 0, xe.Wrap(registry.MetricMissing{RunId: runId, Metric: metricName})
}

func (c *Client) DownloadArtifacts(ctx context.Context, version string, destination string) (registry.Manifest, error) {
	fail := func(cause error) (registry.Manifest, error) {
		return registry.Manifest{}, xe.Wrap(registry.DownloadFailure{
			Version: version, Destination: destination, Cause: cause,
		})
	}

	runId, err := c.runOfVersion(ctx, version)
	if err != nil {
		return fail(err)
	}

	files, err := c.listArtifacts(ctx, runId, "")
	if err != nil {
		return fail(err)
	}
	if len(files) == 0 {
		return fail(fmt.Errorf("run %s has no artifacts", runId))
	}

	for _, path := range files {
		if err := c.getArtifact(ctx, runId, path, destination); err != nil {
			return fail(err)
		}
	}

	value, err := c.FetchMetric(ctx, runId, c.metric)
	if err != nil {
		return fail(err)
	}

	if err := registry.WriteManifest(destination, registry.Manifest{
		ModelName:    c.model,
		Version:      version,
		RunId:        runId,
		Stage:        c.stage,
		Metric:       c.metric,
		MetricValue:  value,
		DownloadedAt: time.Now().UTC(),
	}); err != nil {
		return fail(err)
	}

	// the manifest on disk, not the API response, is the success signal.
	manifest, err := registry.ReadManifest(destination)
	if err != nil {
		return fail(err)
	}
	return manifest, nil
}

func (c *Client) runOfVersion(ctx context.Context, version string) (string, error) {
	q := url.Values{}
	q.Set("name", c.model)
	q.Set("version", version)

	res := struct {
		ModelVersion modelVersion `json:"model_version"`
	}{}
	if err := c.call(ctx, apiPrefix+"/model-versions/get", q, &res); err != nil {
		return "", err
	}
	return res.ModelVersion.RunId, nil
}

func (c *Client) listArtifacts(ctx context.Context, runId string, root string) ([]string, error) {
	q := url.Values{}
	q.Set("run_id", runId)
	if root != "" {
		q.Set("path", root)
	}

	res := struct {
		Files []struct {
			Path  string `json:"path"`
			IsDir bool   `json:"is_dir"`
		} `json:"files"`
	}{}
	if err := c.call(ctx, apiPrefix+"/artifacts/list", q, &res); err != nil {
		return nil, err
	}

	paths := []string{}
	for _, f := range res.Files {
		if f.IsDir {
			sub, err := c.listArtifacts(ctx, runId, f.Path)
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
			continue
		}
		paths = append(paths, f.Path)
	}
	return paths, nil
}

// getArtifact streams one artifact file into destination, preserving
// its path relative to the artifact root.
func (c *Client) getArtifact(ctx context.Context, runId string, path string, destination string) error {
	target := filepath.Join(destination, filepath.FromSlash(path))
	if rel, err := filepath.Rel(destination, target); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("artifact path %s escapes the destination", path)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("run_id", runId)
	q.Set("path", path)

	op := func() error {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, c.endpoint+"/get-artifact?"+q.Encode(), nil,
		)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return httpError{status: resp.StatusCode}
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(httpError{status: resp.StatusCode})
		}

		f, err := os.Create(target)
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return backoff.Retry(op, backoff.WithContext(c.policy(), ctx))
}
