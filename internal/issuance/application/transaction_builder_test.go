package application

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLedgerTransaction_IsDeterministic(t *testing.T) {
	f := newFixture(t)
	c := f.newCertificate(t)

	tx1, err := BuildLedgerTransaction(c)
	require.NoError(t, err)
	tx2, err := BuildLedgerTransaction(f.certs.Get(c.ID()))
	require.NoError(t, err)

	assert.Equal(t, tx1, tx2)
	assert.Len(t, tx1.Ref, 64)

	other := f.newCertificate(t)
	tx3, err := BuildLedgerTransaction(other)
	require.NoError(t, err)
	assert.NotEqual(t, tx1.Ref, tx3.Ref)
}

func TestBuildLedgerTransaction_HidesSecrets(t *testing.T) {
	f := newFixture(t)
	c := f.newCertificate(t)

	tx, err := BuildLedgerTransaction(c)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(tx.Body, &body))
	assert.NotContains(t, string(tx.Body), c.GSRN())
	assert.NotContains(t, string(tx.Body), "blinding-value")
	assert.NotContains(t, body, "quantity")
	assert.Contains(t, body, "quantity_commitment")
}

func TestBuildReceiveRequest(t *testing.T) {
	f := newFixture(t)
	c := f.newCertificate(t)

	req := BuildReceiveRequest(c, "ref-123")
	assert.Equal(t, "ref-123", req.SliceRef)
	assert.Equal(t, c.ID(), req.CertificateID)
	assert.Equal(t, c.Quantity(), req.Quantity)
	assert.Equal(t, c.BlindingValue(), req.BlindingValue)
}
