package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Submit(t *testing.T) {
	var got submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "ref-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	err := c.Submit(context.Background(), domain.LedgerTransaction{Ref: "ref-1", Body: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.Ref)
	assert.JSONEq(t, `{"a":1}`, string(got.Transaction))
}

func TestClient_Submit_ConflictIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Submit(context.Background(), domain.LedgerTransaction{Ref: "r"})
	assert.NoError(t, err)
}

func TestClient_Submit_ErrorClassification(t *testing.T) {
	tests := []struct {
		code      int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnprocessableEntity, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer srv.Close()

			err := New(srv.URL, time.Second).Submit(context.Background(), domain.LedgerTransaction{Ref: "r"})
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.code, statusErr.StatusCode)
			assert.Equal(t, tt.permanent, errors.Is(err, domain.ErrPermanent))
			assert.Equal(t, tt.permanent, domain.Classify(err) == domain.PermanentError)
		})
	}
}

func TestClient_GetStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		body     string
		expected domain.TransactionStatus
	}{
		{"committed", 200, `{"status":"committed"}`, domain.TransactionStatus{Status: domain.LedgerCommitted}},
		{"failed", 200, `{"status":"FAILED","reason":"insufficient funds"}`, domain.TransactionStatus{Status: domain.LedgerFailed, Reason: "insufficient funds"}},
		{"pending", 200, `{"status":"pending"}`, domain.TransactionStatus{Status: domain.LedgerStillProcessing}},
		{"aún no indexada", 404, ``, domain.TransactionStatus{Status: domain.LedgerStillProcessing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transactions/abc", r.URL.Path)
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			status, err := New(srv.URL, time.Second).GetStatus(context.Background(), "abc")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestClient_GetStatus_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, 100*time.Millisecond).GetStatus(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, domain.TransientError, domain.Classify(err))
}
