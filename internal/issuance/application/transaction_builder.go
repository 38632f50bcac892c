package application

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
)

// ledgerTransactionBody es el cuerpo que se firma en el ledger. El orden de los campos
// es fijo, así que el mismo certificado siempre serializa igual.
type ledgerTransactionBody struct {
	CertificateID      string `json:"certificate_id"`
	Kind               string `json:"kind"`
	GridArea           string `json:"grid_area"`
	PeriodFrom         int64  `json:"period_from"`
	PeriodTo           int64  `json:"period_to"`
	Owner              string `json:"owner"`
	GSRNHash           string `json:"gsrn_hash"`
	QuantityCommitment string `json:"quantity_commitment"`
	FuelCode           string `json:"fuel_code,omitempty"`
	TechCode           string `json:"tech_code,omitempty"`
}

// BuildLedgerTransaction deriva la transacción del certificado. Es determinista:
// reenviarla tras un timeout produce exactamente el mismo Ref.
func BuildLedgerTransaction(c *certDomain.Certificate) (domain.LedgerTransaction, error) {
	gsrn := sha256.Sum256([]byte(c.GSRN()))
	body := ledgerTransactionBody{
		CertificateID:      c.ID().String(),
		Kind:               string(c.Kind()),
		GridArea:           c.GridArea(),
		PeriodFrom:         c.Period().From.Unix(),
		PeriodTo:           c.Period().To.Unix(),
		Owner:              c.MeteringPointOwner(),
		GSRNHash:           hex.EncodeToString(gsrn[:]),
		QuantityCommitment: quantityCommitment(c.Quantity(), c.BlindingValue()),
	}
	if tech := c.Technology(); tech != nil {
		body.FuelCode = tech.FuelCode
		body.TechCode = tech.TechCode
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return domain.LedgerTransaction{}, fmt.Errorf("failed to encode ledger transaction: %w", err)
	}
	ref := sha256.Sum256(raw)
	return domain.LedgerTransaction{Ref: hex.EncodeToString(ref[:]), Body: raw}, nil
}

// BuildReceiveRequest usa el Ref de la transacción como referencia del slice.
func BuildReceiveRequest(c *certDomain.Certificate, transactionRef string) domain.ReceiveRequest {
	return domain.ReceiveRequest{
		SliceRef:      transactionRef,
		CertificateID: c.ID(),
		Kind:          c.Kind(),
		GridArea:      c.GridArea(),
		PeriodFrom:    c.Period().From,
		PeriodTo:      c.Period().To,
		Quantity:      c.Quantity(),
		BlindingValue: c.BlindingValue(),
	}
}

// sha256(quantity big-endian || blinding)
func quantityCommitment(quantity int64, blinding []byte) string {
	buf := make([]byte, 8, 8+len(blinding))
	binary.BigEndian.PutUint64(buf, uint64(quantity))
	buf = append(buf, blinding...)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
