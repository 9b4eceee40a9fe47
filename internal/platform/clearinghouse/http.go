package clearinghouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient submits claims to a real clearinghouse endpoint using an API
// key. The wire contract is a JSON envelope around the EDI payload; the
// endpoint answers 200 with an acceptance document or 422 with a rejection.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPClient(url, apiKey string) *HTTPClient {
	return &HTTPClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type submitRequest struct {
	ClaimNumber string `json:"claim_number"`
	PayerID     string `json:"payer_id"`
	EDI         string `json:"edi"`
}

type submitResponse struct {
	Accepted        bool   `json:"accepted"`
	TrackingID      string `json:"tracking_id"`
	RejectionReason string `json:"rejection_reason"`
}

func (c *HTTPClient) Submit(ctx context.Context, sub Submission) (Result, error) {
	body, err := json.Marshal(submitRequest{
		ClaimNumber: sub.ClaimNumber,
		PayerID:     sub.PayerID,
		EDI:         sub.EDI,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("submit claim %s: %w", sub.ClaimNumber, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response for claim %s: %w", sub.ClaimNumber, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return Result{}, fmt.Errorf("clearinghouse returned %d (%s) for claim %s",
			resp.StatusCode, resp.Status, sub.ClaimNumber)
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode response for claim %s: %w", sub.ClaimNumber, err)
	}

	return Result{
		Accepted:        parsed.Accepted,
		ClearinghouseID: parsed.TrackingID,
		RejectionReason: parsed.RejectionReason,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}
