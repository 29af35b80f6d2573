package ingest

import "errors"

// BadInputError marks a failure caused by the caller's input (for example
// an unparseable URL). The HTTP boundary maps it to a client error.
type BadInputError struct {
	Reason string
	Err    error
}

func (e *BadInputError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *BadInputError) Unwrap() error { return e.Err }

// IsBadInput reports whether err is caller-caused.
func IsBadInput(err error) bool {
	var bad *BadInputError
	return errors.As(err, &bad)
}
