package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davicafu/hexacert/internal/issuance/domain"
	sharedUtils "github.com/davicafu/hexacert/internal/shared/infra/utils"
)

// StatusError es una respuesta no 2xx del wallet.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wallet returned %d: %s", e.StatusCode, e.Body)
}

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

type Client struct {
	HTTP *http.Client
}

var _ domain.WalletClient = (*Client)(nil)

func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// ReceiveSlice entrega el slice en el endpoint del propietario. Un 409 indica que ya lo tenía.
func (c *Client) ReceiveSlice(ctx context.Context, endpoint string, in domain.ReceiveRequest) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("Idempotency-Key", sharedUtils.FirstNonEmpty(in.SliceRef, in.CertificateID.String()))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode == http.StatusConflict {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
