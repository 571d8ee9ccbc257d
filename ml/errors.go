package ml

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration errors: bad sample counts, feature
// width mismatches, unusable trainer settings. These are fatal and never retried.
var ErrInvalidConfig = errors.New("invalid configuration")

// PersistenceError wraps an artifact read or write failure. Fatal for the
// operation in progress; retrying is the caller's decision.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s model artifact %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ArchitectureMismatchError reports an artifact whose tensor names or shapes
// disagree with the declared network architecture. Loading never reshapes.
type ArchitectureMismatchError struct {
	Tensor string
	Want   [2]int
	Got    [2]int
}

func (e *ArchitectureMismatchError) Error() string {
	return fmt.Sprintf("architecture mismatch for %s: artifact has [%d,%d], model expects [%d,%d]",
		e.Tensor, e.Got[0], e.Got[1], e.Want[0], e.Want[1])
}

// IsArchitectureMismatch reports whether err is an architecture mismatch.
func IsArchitectureMismatch(err error) bool {
	var mismatch *ArchitectureMismatchError
	return errors.As(err, &mismatch)
}
