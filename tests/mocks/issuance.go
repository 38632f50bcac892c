package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ---------- Progress ----------

// InMemoryProgressRepo simula ProgressRepository guardando copias profundas.
type InMemoryProgressRepo struct {
	States map[uuid.UUID]*domain.WorkflowState
	// Statuses registra el estado de cada SaveProgress, en orden.
	Statuses  []domain.Status
	SaveErr   error
	LoadErr   error
	ListErr   error
	ListCalls int

	mu sync.Mutex
}

var _ domain.ProgressRepository = (*InMemoryProgressRepo)(nil)

func NewInMemoryProgressRepo() *InMemoryProgressRepo {
	return &InMemoryProgressRepo{States: make(map[uuid.UUID]*domain.WorkflowState)}
}

func copyState(st *domain.WorkflowState) *domain.WorkflowState {
	cp := *st
	cp.Steps = make(map[domain.Step]*domain.StepRecord, len(st.Steps))
	for k, v := range st.Steps {
		rec := *v
		if v.Attempts != nil {
			rec.Attempts = make(map[domain.FailureKind]int, len(v.Attempts))
			for fk, n := range v.Attempts {
				rec.Attempts[fk] = n
			}
		}
		cp.Steps[k] = &rec
	}
	return &cp
}

// SetListErr cambia ListErr mientras otros goroutines usan el repo.
func (r *InMemoryProgressRepo) SetListErr(err error) {
	r.mu.Lock()
	r.ListErr = err
	r.mu.Unlock()
}

func (r *InMemoryProgressRepo) ListCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ListCalls
}

func (r *InMemoryProgressRepo) LoadProgress(ctx context.Context, id uuid.UUID) (*domain.WorkflowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	st, ok := r.States[id]
	if !ok {
		return nil, domain.ErrProgressNotFound
	}
	return copyState(st), nil
}

func (r *InMemoryProgressRepo) SaveProgress(ctx context.Context, st *domain.WorkflowState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.States[st.CertificateID] = copyState(st)
	r.Statuses = append(r.Statuses, st.Status)
	return nil
}

func (r *InMemoryProgressRepo) ListUnfinished(ctx context.Context, after domain.ResumeCursor, limit int) ([]*domain.WorkflowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListCalls++
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []*domain.WorkflowState
	for _, st := range r.States {
		if !st.Finished() && after.Precedes(st) {
			out = append(out, copyState(st))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CertificateID.String() < out[j].CertificateID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------- Ledger ----------

// StatusResult es una respuesta programada de GetStatus.
type StatusResult struct {
	Status domain.TransactionStatus
	Err    error
}

// ScriptedLedger responde según los guiones; la última respuesta de cada guion se repite.
type ScriptedLedger struct {
	SubmitErrs []error
	Statuses   []StatusResult

	Submitted   []domain.LedgerTransaction
	StatusCalls int

	mu sync.Mutex
}

var _ domain.LedgerClient = (*ScriptedLedger)(nil)

func (l *ScriptedLedger) Submit(ctx context.Context, tx domain.LedgerTransaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := len(l.Submitted)
	l.Submitted = append(l.Submitted, tx)
	return pick(l.SubmitErrs, idx)
}

func (l *ScriptedLedger) GetStatus(ctx context.Context, ref string) (domain.TransactionStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.StatusCalls
	l.StatusCalls++
	if len(l.Statuses) == 0 {
		return domain.TransactionStatus{Status: domain.LedgerCommitted}, nil
	}
	if idx >= len(l.Statuses) {
		idx = len(l.Statuses) - 1
	}
	res := l.Statuses[idx]
	return res.Status, res.Err
}

func (l *ScriptedLedger) SubmitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Submitted)
}

// ---------- Wallet ----------

type ScriptedWallet struct {
	Errs     []error
	Requests []domain.ReceiveRequest

	mu sync.Mutex
}

var _ domain.WalletClient = (*ScriptedWallet)(nil)

func (w *ScriptedWallet) ReceiveSlice(ctx context.Context, endpoint string, req domain.ReceiveRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := len(w.Requests)
	w.Requests = append(w.Requests, req)
	return pick(w.Errs, idx)
}

func (w *ScriptedWallet) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Requests)
}

func pick(errs []error, idx int) error {
	if len(errs) == 0 {
		return nil
	}
	if idx >= len(errs) {
		idx = len(errs) - 1
	}
	return errs[idx]
}

// ErrUnavailable simula un fallo de red.
var ErrUnavailable = errors.New("service unavailable")

// ---------- Outcome analytics ----------

type MockOutcomeRecorder struct {
	mock.Mock
}

func (m *MockOutcomeRecorder) RecordOutcome(ctx context.Context, rec domain.OutcomeRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
