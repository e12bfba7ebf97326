package identity

import (
	"errors"

	"github.com/google/uuid"
)

// Kind classifies identity failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidEmail
	KindDisabled
	KindNotFound
	KindWrongCredential
	KindWeakPassword
	KindEmailInUse
	KindUnauthenticated
	KindNoAccess
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindInvalidEmail:    "invalid_email",
	KindDisabled:        "disabled",
	KindNotFound:        "not_found",
	KindWrongCredential: "wrong_credential",
	KindWeakPassword:    "weak_password",
	KindEmailInUse:      "email_in_use",
	KindUnauthenticated: "unauthenticated",
	KindNoAccess:        "no_access",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

var kindMessages = map[Kind]string{
	KindInvalidEmail:    "Invalid email address",
	KindDisabled:        "This account has been disabled",
	KindNotFound:        "No account found with this email",
	KindWrongCredential: "Invalid email or password",
	KindWeakPassword:    "Password is too weak",
	KindEmailInUse:      "Email already in use",
	KindUnauthenticated: "Your session has expired. Please sign in again",
	KindNoAccess:        "This account has no console access",
}

// Op names the operation an Error came from. It only affects the message of
// unknown failures.
type Op string

const (
	OpSignIn       Op = "sign-in"
	OpSignOut      Op = "sign-out"
	OpProvision    Op = "provision-admin"
	OpAuthenticate Op = "authenticate"
)

var unknownMessages = map[Op]string{
	OpSignIn:       "Failed to sign in. Please try again.",
	OpSignOut:      "Failed to logout",
	OpProvision:    "Failed to create admin",
	OpAuthenticate: "Failed to verify session",
}

// Error is an identity failure with a user-facing message.
type Error struct {
	Kind Kind
	Op   Op
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Op) + ": " + e.Kind.String() + ": " + e.Err.Error()
	}
	return string(e.Op) + ": " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user. Sign-in answers an unknown email
// like a wrong password so the reply does not tell which accounts exist.
func (e *Error) Message() string {
	if e.Op == OpSignIn && e.Kind == KindNotFound {
		return kindMessages[KindWrongCredential]
	}
	if msg, ok := kindMessages[e.Kind]; ok {
		return msg
	}
	if msg, ok := unknownMessages[e.Op]; ok {
		return msg
	}
	return "Something went wrong"
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var codeKinds = map[string]Kind{
	CodeInvalidEmail:      KindInvalidEmail,
	CodeUserDisabled:      KindDisabled,
	CodeUserNotFound:      KindNotFound,
	CodeWrongPassword:     KindWrongCredential,
	CodeInvalidCredential: KindWrongCredential,
	CodeWeakPassword:      KindWeakPassword,
	CodeEmailInUse:        KindEmailInUse,
	CodeInvalidToken:      KindUnauthenticated,
}

// translate maps a provider failure onto an *Error.
func translate(op Op, err error) *Error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if kind, ok := codeKinds[pe.Code]; ok {
			return &Error{Kind: kind, Op: op, Err: err}
		}
	}
	return &Error{Kind: KindUnknown, Op: op, Err: err}
}

// ProvisionError reports an admin account that was created but whose profile
// could not be written. The account can sign in and resolves to the default
// role until the profile is repaired.
type ProvisionError struct {
	AccountID      uuid.UUID
	Email          string
	AccountCreated bool
	Err            error
}

func (e *ProvisionError) Error() string {
	return "account " + e.AccountID.String() + " created without profile: " + e.Err.Error()
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}
