package domain

import (
	"errors"
	"fmt"
)

// FailureKind clasifica un Faulted para decidir si consume un reintento.
type FailureKind string

const (
	TransientError       FailureKind = "TransientError"
	StillProcessingError FailureKind = "StillProcessingError"
	PermanentError       FailureKind = "PermanentError"
)

// ErrPermanent lo reconocen los clientes externos cuando el servicio rechaza la petición
// de forma definitiva (4xx). Se comprueba con errors.Is.
var ErrPermanent = errors.New("permanent failure")

// Outcome es el resultado cerrado de una actividad: Completed, Faulted o Terminated.
type Outcome interface {
	isOutcome()
}

// Completed indica que la actividad terminó; Output se guarda en el progreso del paso.
type Completed struct {
	Output string
}

// Faulted indica un fallo. El orquestador decide si se reintenta según Kind.
type Faulted struct {
	Kind FailureKind
	Err  error
}

// Terminated indica un rechazo explícito del servicio externo. Nunca se reintenta.
type Terminated struct {
	Reason string
}

func (Completed) isOutcome()  {}
func (Faulted) isOutcome()    {}
func (Terminated) isOutcome() {}

func (f Faulted) Message() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return f.Err.Error()
}

func Transient(err error) Faulted {
	return Faulted{Kind: TransientError, Err: err}
}

func StillProcessing(ref string) Faulted {
	return Faulted{Kind: StillProcessingError, Err: fmt.Errorf("transaction %s still processing", ref)}
}

func Permanent(err error) Faulted {
	return Faulted{Kind: PermanentError, Err: err}
}

// Classify traduce un error de transporte o de servicio a un FailureKind.
func Classify(err error) FailureKind {
	if errors.Is(err, ErrPermanent) {
		return PermanentError
	}
	return TransientError
}
