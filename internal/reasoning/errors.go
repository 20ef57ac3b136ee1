package reasoning

import "fmt"

// Error represents a failure calling the formal-policy service.
type Error struct {
	Op         string
	Path       string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("reasoning service %s %s: HTTP %d: %s", e.Op, e.Path, e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("reasoning service %s %s: %s: %v", e.Op, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("reasoning service %s %s: %s", e.Op, e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
