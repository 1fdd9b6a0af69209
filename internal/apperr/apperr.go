// Package apperr define a taxonomia de erros compartilhada entre serviços e HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifica a falha e corresponde ao campo "code" do envelope de erro.
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindUnauthenticated Kind = "AUTH"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInternal        Kind = "INTERNAL"
)

var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInternal        = &Error{Kind: KindInternal}
)

// Error carrega tipo, mensagem amigável e, quando houver, o campo inválido.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is compara apenas o tipo, permitindo errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Field == "" && t.Err == nil && t.Kind == e.Kind
}

// Validation sinaliza campo ausente ou malformado.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Unauthenticated sinaliza ausência de ator resolvido.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden sinaliza ator autenticado sem a capacidade exigida.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound sinaliza identificador que não resolve para nenhum registro.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict sinaliza violação de unicidade.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Internal embrulha falha inesperada; a mensagem exposta é sempre genérica.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "erro interno", Err: err}
}

// Internalf cria falha interna com contexto formatado.
func Internalf(format string, args ...any) *Error {
	return Internal(fmt.Errorf(format, args...))
}

// KindOf devolve o tipo do erro; erros fora da taxonomia são internos.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extrai o *Error da cadeia, embrulhando erros desconhecidos como internos.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
