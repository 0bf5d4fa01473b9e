package domain

import (
	"fmt"
	"strings"
	"time"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s não encontrado: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input). No state changed.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("operação não permitida: %s", e.Action)
}

// ErrUnauthorized indicates a missing, invalid or expired BFA token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (e.g. duplicate username).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrAuth is an authentication failure already translated to the message
// the login/register forms render inline.
type ErrAuth struct {
	Message string
	Err     error
}

func (e *ErrAuth) Error() string {
	return e.Message
}

func (e *ErrAuth) Unwrap() error {
	return e.Err
}

// ErrPersistence indicates a write to the data store failed after the
// in-memory state was already updated. The state is kept until the next load.
type ErrPersistence struct {
	Collection string
	Err        error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("Erro ao salvar %s na nuvem. As alterações podem ser perdidas ao recarregar.", e.Collection)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrConfirmationRequired indicates a destructive operation that must be
// repeated with explicit confirmation.
type ErrConfirmationRequired struct {
	Message string
	Impact  any
}

func (e *ErrConfirmationRequired) Error() string {
	return e.Message
}

// ErrRateLimited indicates the per-session AI throttle rejected a call.
type ErrRateLimited struct {
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	secs := int(e.RetryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Aguarde %d segundos antes de usar a IA novamente.", secs)
}

// ErrImportInvalid indicates an uploaded backup lacks required keys.
type ErrImportInvalid struct {
	Missing []string
}

func (e *ErrImportInvalid) Error() string {
	if len(e.Missing) == 0 {
		return "Arquivo de backup inválido."
	}
	return fmt.Sprintf("Arquivo de backup inválido: faltando %s.", strings.Join(e.Missing, ", "))
}

// ErrProvider is a rejection reported by the hosted auth provider, before
// translation to a user-facing message.
type ErrProvider struct {
	Status  int
	Code    string
	Message string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("auth provider returned %d [%s]: %s", e.Status, e.Code, e.Message)
}
