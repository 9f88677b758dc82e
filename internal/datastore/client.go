// Package datastore wraps the data store registry API: dataset listing and
// lookup, issuing temporary S3-scoped credentials, and transferring dataset
// files.
package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gbrrestoration/mdsclient/internal/auth/token"
)

// TokenSource supplies validated access tokens for API calls. The token
// session manager satisfies this.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// S3Location identifies where a dataset's files live.
type S3Location struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URI    string `json:"s3_uri"`
}

// Dataset is a registry item as returned by the data store API.
type Dataset struct {
	Handle string
	Name   string
	S3     S3Location
}

// Credentials are temporary AWS credentials scoped to one dataset location.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiry          string
}

// Client calls the data store API with bearer authorization.
type Client struct {
	endpoint   string
	tokens     TokenSource
	httpClient *http.Client
}

// New creates a data store API client. A nil httpClient selects a default
// with a conservative timeout.
func New(endpoint string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		endpoint:   endpoint,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// ListDatasets returns every dataset registered in the data store.
func (c *Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	result, _, err := c.call(ctx, http.MethodGet, "/registry/items/list-all-datasets", nil, nil)
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(result); err != nil {
		return nil, err
	}
	var datasets []Dataset
	result.Get("registry_items").ForEach(func(_, item gjson.Result) bool {
		datasets = append(datasets, decodeDataset(item))
		return true
	})
	return datasets, nil
}

// FetchDataset looks up a dataset by handle. A well-formed not-found
// response yields (nil, nil).
func (c *Client) FetchDataset(ctx context.Context, handle string) (*Dataset, error) {
	query := url.Values{}
	query.Set("handle_id", handle)
	result, status, err := c.call(ctx, http.MethodGet, "/registry/items/fetch-dataset", query, nil)
	if err != nil {
		return nil, err
	}
	if !result.Get("status.success").Bool() {
		if status == http.StatusOK {
			return nil, nil
		}
		return nil, fmt.Errorf("datastore: fetch dataset %s failed: %s", handle, result.Get("status.details").String())
	}
	dataset := decodeDataset(result.Get("item"))
	return &dataset, nil
}

// ReadCredentials issues temporary read-only AWS credentials for a dataset
// location.
func (c *Client) ReadCredentials(ctx context.Context, location S3Location) (*Credentials, error) {
	return c.credentials(ctx, "/registry/credentials/generate-read-access-credentials", location)
}

// WriteCredentials issues temporary read-write AWS credentials for a
// dataset location.
func (c *Client) WriteCredentials(ctx context.Context, location S3Location) (*Credentials, error) {
	return c.credentials(ctx, "/registry/credentials/generate-write-access-credentials", location)
}

func (c *Client) credentials(ctx context.Context, path string, location S3Location) (*Credentials, error) {
	payload := map[string]any{
		"s3_location":              location,
		"console_session_required": false,
	}
	result, _, err := c.call(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	if err = checkEnvelope(result); err != nil {
		return nil, err
	}
	creds := result.Get("credentials")
	return &Credentials{
		AccessKeyID:     creds.Get("aws_access_key_id").String(),
		SecretAccessKey: creds.Get("aws_secret_access_key").String(),
		SessionToken:    creds.Get("aws_session_token").String(),
		Expiry:          creds.Get("expiry").String(),
	}, nil
}

// call performs a bearer-authorized API request and returns the parsed
// response body plus the HTTP status code.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any) (gjson.Result, int, error) {
	endpoint := c.endpoint + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, 0, fmt.Errorf("datastore: marshal request failed: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return gjson.Result{}, 0, fmt.Errorf("datastore: create request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	accessToken, err := c.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return gjson.Result{}, 0, err
	}
	token.NewBearerCredential(accessToken).Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, 0, fmt.Errorf("datastore: request to %s failed: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, resp.StatusCode, fmt.Errorf("datastore: read response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.ParseBytes(raw), resp.StatusCode, fmt.Errorf("datastore: %s returned status %d: %s", endpoint, resp.StatusCode, string(raw))
	}
	return gjson.ParseBytes(raw), resp.StatusCode, nil
}

func checkEnvelope(result gjson.Result) error {
	if result.Get("status.success").Bool() {
		return nil
	}
	details := result.Get("status.details").String()
	if details == "" {
		details = "no details provided"
	}
	return fmt.Errorf("datastore: API reported failure: %s", details)
}

func decodeDataset(item gjson.Result) Dataset {
	return Dataset{
		Handle: item.Get("handle").String(),
		Name:   item.Get("collection_format.dataset_info.name").String(),
		S3: S3Location{
			Bucket: item.Get("s3.bucket").String(),
			Path:   item.Get("s3.path").String(),
			URI:    item.Get("s3.s3_uri").String(),
		},
	}
}
