// Package core holds types and error codes shared across every Kasupel
// server package: the wire-level enums, the numeric error taxonomy, and
// the small value types (Side, TimeControl) that both the engine and the
// HTTP/websocket layers need.
package core

import "fmt"

// Code is a four-digit numeric error code. Codes ending in 0 are
// sub-group labels and are never returned to a client.
type Code int

const (
	// 1000: accounts
	CodeAccountNotFound      Code = 1001
	CodeUsernameTaken        Code = 1111
	CodeUsernameInvalid      Code = 1112
	CodeUsernameTooLong      Code = 1113
	CodePasswordTooShort     Code = 1121
	CodePasswordTooLong      Code = 1122
	CodePasswordTooWeak      Code = 1123
	CodePasswordPwned        Code = 1124
	CodeEmailInvalid         Code = 1131
	CodeEmailTaken           Code = 1132
	CodeEmailNotVerified     Code = 1133
	CodeVerificationNotFound Code = 1201
	CodeVerificationInvalid  Code = 1202
	CodeBadCredentials       Code = 1301
	CodeSessionNotFound      Code = 1302
	CodeSessionExpired       Code = 1303
	CodeNotAuthenticated     Code = 1304
	CodeUnauthorized         Code = 1309
	CodeNotificationNotFound Code = 1401

	// 2000: games
	CodeGameNotFound           Code = 2001
	CodeNotInvited             Code = 2111
	CodeCannotInviteSelf       Code = 2121
	CodeSocketNotParticipant   Code = 2201
	CodeSocketGameEnded        Code = 2202
	CodeNotInProgress          Code = 2311
	CodeNotYourTurn            Code = 2312
	CodeInvalidMove            Code = 2313
	CodeOpponentNotTimedOut    Code = 2314
	CodeNotADrawReason         Code = 2321
	CodeDrawNotAvailable       Code = 2322

	// 3000: malformed request
	CodeValueRequired  Code = 3101
	CodeWrongParams    Code = 3102
	CodeBadEncrypted   Code = 3103
	CodeSyntaxGeneric  Code = 3111
	CodePageOutOfRange Code = 3201
	CodeUnknownURL     Code = 3301

	// 3400: socket auth
	CodeSocketAuthMalformed  Code = 3411
	CodeSocketAuthUnknown    Code = 3412
	CodeSocketTokenMismatch  Code = 3413
	CodeSocketGameIDMalformed Code = 3421

	// 4000: internal
	CodeInternal           Code = 4001
	CodeSocketSessionUnknown Code = 4101

	// 5000: media
	CodeMediaNotFound Code = 5001
)

// CodedError is an application error carrying a wire error code. Every
// error returned from the engine, matchmaker, hub, or account packages
// that should surface to a client is, or wraps, a *CodedError.
type CodedError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewError builds a CodedError from a code and a caller-supplied message.
func NewError(code Code, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// AsCoded extracts a *CodedError from err, defaulting to an internal
// error code when err does not carry one.
func AsCoded(err error) *CodedError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CodedError); ok {
		return ce
	}
	return &CodedError{Code: CodeInternal, Message: err.Error()}
}
