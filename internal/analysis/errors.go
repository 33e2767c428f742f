package analysis

import (
	"errors"
	"fmt"
)

// ErrStructural matches any StructuralError via errors.Is.
var ErrStructural = errors.New("input is not a sequence of records")

// StructuralError reports an input element that is not a mapping.
// Index is 0-based; -1 means the input as a whole was not a sequence.
type StructuralError struct {
	Index int
	Got   string
}

func (e *StructuralError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("records must be an array of objects, got %s", e.Got)
	}
	return fmt.Sprintf("record %d is not an object (got %s)", e.Index+1, e.Got)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }
