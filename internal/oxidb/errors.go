package oxidb

import "fmt"

// Error is returned when the server answers with ok=false.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}

// NotFoundError is returned when the requested bucket or object does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("oxidb: not found: %s", e.Msg)
}
