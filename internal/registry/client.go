package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client fetches the swap-info registry (tokens, pools, program IDs) from an
// aggregator endpoint, with an optional local-file fallback for development.
type Client struct {
	BaseURL  string
	FilePath string
	HTTP     *http.Client
}

func NewClient(baseURL, filePath string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		BaseURL:  baseURL,
		FilePath: strings.TrimSpace(filePath),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("registry http %d", e.StatusCode)
	}
	return fmt.Sprintf("registry http %d: %s", e.StatusCode, b)
}

// GetSwapInfo fetches and validates a registry snapshot. When BaseURL is
// empty the local file path is used instead.
func (c *Client) GetSwapInfo(ctx context.Context) (*SwapInfo, error) {
	var (
		body []byte
		err  error
	)
	if c.BaseURL != "" {
		body, err = c.fetch(ctx)
	} else if c.FilePath != "" {
		body, err = os.ReadFile(c.FilePath)
	} else {
		return nil, fmt.Errorf("registry: no endpoint or file configured")
	}
	if err != nil {
		return nil, err
	}

	var info SwapInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode swap info: %w", err)
	}
	if err := validate(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/swap-info", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	return body, nil
}

func validate(info *SwapInfo) error {
	if len(info.Tokens) == 0 {
		return fmt.Errorf("registry: no tokens")
	}
	if len(info.Pools) == 0 {
		return fmt.Errorf("registry: no pools")
	}
	for name, p := range info.Pools {
		if p.FeeDenominator == 0 {
			return fmt.Errorf("registry: pool %s: feeDenominator must be > 0", name)
		}
		if _, ok := info.Tokens[p.TokenAName]; !ok {
			return fmt.Errorf("registry: pool %s references unknown token %s", name, p.TokenAName)
		}
		if _, ok := info.Tokens[p.TokenBName]; !ok {
			return fmt.Errorf("registry: pool %s references unknown token %s", name, p.TokenBName)
		}
	}
	return nil
}
