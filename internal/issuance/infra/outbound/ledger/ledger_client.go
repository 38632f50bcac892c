package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davicafu/hexacert/internal/issuance/domain"
)

// StatusError es una respuesta no 2xx del ledger.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger %s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is hace que los 4xx definitivos casen con domain.ErrPermanent.
func (e *StatusError) Is(target error) bool {
	if target != domain.ErrPermanent {
		return false
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Client habla con el registro por HTTP/JSON.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ domain.LedgerClient = (*Client)(nil)

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: timeout}}
}

type submitRequest struct {
	Ref         string          `json:"ref"`
	Transaction json.RawMessage `json:"transaction"`
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Submit envía la transacción. Un 409 significa que ya estaba registrada.
func (c *Client) Submit(ctx context.Context, tx domain.LedgerTransaction) error {
	b, err := json.Marshal(submitRequest{Ref: tx.Ref, Transaction: tx.Body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transactions", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("Idempotency-Key", tx.Ref)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict || resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return newStatusError("submit", resp)
}

// GetStatus consulta la transacción. Un 404 se trata como "aún procesando":
// el registro puede tardar en indexar una transacción recién enviada.
func (c *Client) GetStatus(ctx context.Context, ref string) (domain.TransactionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transactions/"+url.PathEscape(ref), nil)
	if err != nil {
		return domain.TransactionStatus{}, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.TransactionStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.TransactionStatus{Status: domain.LedgerStillProcessing}, nil
	}
	if resp.StatusCode >= 300 {
		return domain.TransactionStatus{}, newStatusError("status", resp)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.TransactionStatus{}, fmt.Errorf("decode ledger status: %w", err)
	}

	switch strings.ToLower(out.Status) {
	case "committed":
		return domain.TransactionStatus{Status: domain.LedgerCommitted}, nil
	case "failed":
		return domain.TransactionStatus{Status: domain.LedgerFailed, Reason: out.Reason}, nil
	case "pending", "processing", "still_processing":
		return domain.TransactionStatus{Status: domain.LedgerStillProcessing}, nil
	}
	return domain.TransactionStatus{}, fmt.Errorf("unknown ledger status %q", out.Status)
}

func newStatusError(op string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
