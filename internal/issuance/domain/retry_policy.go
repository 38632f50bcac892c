package domain

import "time"

type PolicyKind string

const (
	Fixed       PolicyKind = "fixed"
	Incremental PolicyKind = "incremental"
)

// RetryPolicy es configuración inmutable: se construye al arrancar y se pasa por valor.
// MaxAttempts cuenta todos los intentos, el primero incluido.
type RetryPolicy struct {
	Kind        PolicyKind
	Interval    time.Duration // intervalo fijo, o el primero en Incremental
	Increment   time.Duration
	MaxInterval time.Duration // 0 = sin tope
	MaxAttempts int
	Retryable   []FailureKind
}

func (p RetryPolicy) Handles(kind FailureKind) bool {
	for _, k := range p.Retryable {
		if k == kind {
			return true
		}
	}
	return false
}

// Exhausted indica si tras failures fallos ya no queda ningún intento.
func (p RetryPolicy) Exhausted(failures int) bool {
	return failures >= p.MaxAttempts
}

// Delay es la espera antes del siguiente intento, tras failures fallos (>= 1).
func (p RetryPolicy) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := p.Interval
	if p.Kind == Incremental {
		d += time.Duration(failures-1) * p.Increment
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

// ActivityPolicy agrupa las reglas de una actividad; cada tipo de fallo usa la primera regla que lo acepta.
type ActivityPolicy struct {
	Rules []RetryPolicy
}

func (a ActivityPolicy) RuleFor(kind FailureKind) (RetryPolicy, bool) {
	for _, r := range a.Rules {
		if r.Handles(kind) {
			return r, true
		}
	}
	return RetryPolicy{}, false
}

// Policies asigna una política a cada actividad.
type Policies struct {
	IssueToLedger   ActivityPolicy
	AwaitCommitment ActivityPolicy
	DeliverToWallet ActivityPolicy
	MarkIssued      ActivityPolicy
}

func (p Policies) For(step Step) ActivityPolicy {
	switch step {
	case StepIssueToLedger:
		return p.IssueToLedger
	case StepAwaitCommitment:
		return p.AwaitCommitment
	case StepDeliverToWallet:
		return p.DeliverToWallet
	case StepMarkIssued:
		return p.MarkIssued
	}
	return ActivityPolicy{}
}

func DefaultPolicies() Policies {
	return Policies{
		IssueToLedger: ActivityPolicy{Rules: []RetryPolicy{{
			Kind:        Fixed,
			Interval:    500 * time.Millisecond,
			MaxAttempts: 3,
			Retryable:   []FailureKind{TransientError},
		}}},
		AwaitCommitment: ActivityPolicy{Rules: []RetryPolicy{
			{
				Kind:        Fixed,
				Interval:    time.Second,
				MaxAttempts: 600,
				Retryable:   []FailureKind{StillProcessingError},
			},
			{
				Kind:        Incremental,
				Interval:    500 * time.Millisecond,
				Increment:   500 * time.Millisecond,
				MaxInterval: 5 * time.Second,
				MaxAttempts: 5,
				Retryable:   []FailureKind{TransientError},
			},
		}},
		DeliverToWallet: ActivityPolicy{Rules: []RetryPolicy{{
			Kind:        Incremental,
			Interval:    time.Second,
			Increment:   time.Second,
			MaxInterval: 10 * time.Second,
			MaxAttempts: 3,
			Retryable:   []FailureKind{TransientError},
		}}},
		MarkIssued: ActivityPolicy{Rules: []RetryPolicy{{
			Kind:        Incremental,
			Interval:    500 * time.Millisecond,
			Increment:   500 * time.Millisecond,
			MaxInterval: 5 * time.Second,
			MaxAttempts: 5,
			Retryable:   []FailureKind{TransientError},
		}}},
	}
}
