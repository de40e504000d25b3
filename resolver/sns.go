package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

// DefaultSNSEndpoint is the public Bonfida proxy.
const DefaultSNSEndpoint = "https://sns-sdk-proxy.bonfida.workers.dev"

// SNSResolver resolves .sol names over the SNS proxy HTTP API.
type SNSResolver struct {
	endpoint string
	client   *http.Client
}

func NewSNSResolver(endpoint string, client *http.Client) *SNSResolver {
	if endpoint == "" {
		endpoint = DefaultSNSEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &SNSResolver{endpoint: strings.TrimRight(endpoint, "/"), client: client}
}

type snsResponse struct {
	S      string `json:"s"`
	Result string `json:"result"`
}

func (r *SNSResolver) Resolve(ctx context.Context, name string) (string, error) {
	u := r.endpoint + "/resolve/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sns lookup for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sns lookup for %s: unexpected status %s", name, resp.Status)
	}

	var body snsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode sns response: %w", err)
	}
	if body.Result == "" {
		return "", nil
	}
	// the proxy answers errors in "result" with s != "ok"
	if raw, err := base58.Decode(body.Result); err != nil || len(raw) != 32 {
		return "", nil
	}
	return body.Result, nil
}
