// services/partner_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BalanceChecker reports a user's balance in a partner system.
type BalanceChecker interface {
	Balance(ctx context.Context, userID string, params map[string]string) (float64, error)
}

// PartnerClient queries the partner app's balance endpoint.
type PartnerClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type partnerBalanceResponse struct {
	Success *bool       `json:"success"`
	Balance json.Number `json:"balance"`
	Message string      `json:"message"`
}

func NewPartnerClient(baseURL, token string, timeout time.Duration) *PartnerClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PartnerClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Balance calls GET /api/balance. An unknown user counts as a zero balance;
// every other failure wraps ErrVerificationUnavailable.
func (c *PartnerClient) Balance(ctx context.Context, userID string, params map[string]string) (float64, error) {
	if c == nil || c.BaseURL == "" {
		return 0, fmt.Errorf("%w: partner service not configured", ErrVerificationUnavailable)
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("userId", userID)
	endpoint := fmt.Sprintf("%s/api/balance?%s", c.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: partner returned %d: %s", ErrVerificationUnavailable, resp.StatusCode, string(body))
	}

	var out partnerBalanceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: decode partner response: %v", ErrVerificationUnavailable, err)
	}
	if out.Success != nil && !*out.Success {
		return 0, fmt.Errorf("%w: partner rejected request: %s", ErrVerificationUnavailable, out.Message)
	}
	if out.Balance == "" {
		return 0, nil
	}
	balance, err := out.Balance.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: bad balance %q", ErrVerificationUnavailable, out.Balance)
	}
	return balance, nil
}
