package game

import "fmt"

type ErrorKind int

const (
	KindAuthorization ErrorKind = iota + 1
	KindValidation
	KindExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindExhausted:
		return "exhausted"
	}
	return "unknown"
}

// CommandError rejects a command without touching room state. Msg is shown
// to the caller as a toast.
type CommandError struct {
	Kind ErrorKind
	Msg  string
}

func (e *CommandError) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

func denied(format string, args ...any) error {
	return &CommandError{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &CommandError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func exhausted(format string, args ...any) error {
	return &CommandError{Kind: KindExhausted, Msg: fmt.Sprintf(format, args...)}
}

var errHostOnly = &CommandError{Kind: KindAuthorization, Msg: "Host only."}
