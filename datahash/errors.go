package datahash

import "fmt"

type UnknownAlgorithmError struct {
	name string
}

func NewUnknownAlgorithmError(name string) UnknownAlgorithmError {
	return UnknownAlgorithmError{name: name}
}

func (e UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("unknown hash algorithm %s", e.name)
}

// InvalidImprintError is returned when bytes cannot be parsed as an imprint.
type InvalidImprintError struct {
	reason string
}

func NewInvalidImprintError(reason string) InvalidImprintError {
	return InvalidImprintError{reason: reason}
}

func (e InvalidImprintError) Error() string {
	return fmt.Sprintf("invalid imprint: %s", e.reason)
}
