package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ReceiveSlice(t *testing.T) {
	id := uuid.New()
	var got domain.ReceiveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/slices", r.URL.Path)
		assert.Equal(t, "slice-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := New(time.Second).ReceiveSlice(context.Background(), srv.URL+"/v1/slices", domain.ReceiveRequest{
		SliceRef:      "slice-1",
		CertificateID: id,
		Quantity:      10,
		BlindingValue: []byte{9, 8},
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.CertificateID)
	assert.Equal(t, []byte{9, 8}, got.BlindingValue)
}

func TestClient_ReceiveSlice_Errors(t *testing.T) {
	tests := []struct {
		code int
		want domain.FailureKind
	}{
		{http.StatusConflict, ""},
		{http.StatusBadRequest, domain.PermanentError},
		{http.StatusBadGateway, domain.TransientError},
		{http.StatusTooManyRequests, domain.TransientError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			err := New(time.Second).ReceiveSlice(context.Background(), srv.URL, domain.ReceiveRequest{SliceRef: "s"})
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.want, domain.Classify(err))
		})
	}
}
