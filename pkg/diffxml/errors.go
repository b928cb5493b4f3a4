package diffxml

import (
	"errors"
	"fmt"

	"github.com/drengskapur/repodiff/pkg/pathguard"
)

// Kind classifies a parse failure.
type Kind int

const (
	KindInvalidXML Kind = iota + 1
	KindNoFileElements
	KindMissingName
	KindDuplicateFile
	KindMissingReplace
	KindMultipleReplace
	KindPathTraversal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidXML:
		return "invalid XML"
	case KindNoFileElements:
		return "no file elements"
	case KindMissingName:
		return "missing name"
	case KindDuplicateFile:
		return "duplicate file"
	case KindMissingReplace:
		return "missing replace"
	case KindMultipleReplace:
		return "multiple replace"
	case KindPathTraversal:
		return "path traversal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels matched by *Error through errors.Is.
var (
	ErrInvalidXML      = errors.New("invalid XML")
	ErrNoFileElements  = errors.New("no file elements")
	ErrMissingName     = errors.New("file element missing name attribute")
	ErrDuplicateFile   = errors.New("duplicate file element")
	ErrMissingReplace  = errors.New("file element missing replace element")
	ErrMultipleReplace = errors.New("file element has more than one replace element")
	ErrPathTraversal   = pathguard.ErrPathTraversal
)

var sentinels = map[Kind]error{
	KindInvalidXML:      ErrInvalidXML,
	KindNoFileElements:  ErrNoFileElements,
	KindMissingName:     ErrMissingName,
	KindDuplicateFile:   ErrDuplicateFile,
	KindMissingReplace:  ErrMissingReplace,
	KindMultipleReplace: ErrMultipleReplace,
	KindPathTraversal:   ErrPathTraversal,
}

// Error is returned by Parse. Index is the zero-based position of the
// offending file element, or -1 for document-level failures.
type Error struct {
	Kind  Kind
	Index int
	Name  string
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidXML:
		if e.Err != nil {
			return fmt.Sprintf("invalid diff XML: %v", e.Err)
		}
		return "invalid diff XML"
	case KindNoFileElements:
		return "diff XML contains no <file> elements"
	case KindMissingName:
		return fmt.Sprintf("<file> element at index %d is missing the name attribute", e.Index)
	case KindDuplicateFile:
		return fmt.Sprintf("duplicate <file> element for %q at index %d", e.Name, e.Index)
	case KindMissingReplace:
		return fmt.Sprintf("<file name=%q> at index %d has no <replace> element", e.Name, e.Index)
	case KindMultipleReplace:
		return fmt.Sprintf("<file name=%q> at index %d has more than one <replace> element", e.Name, e.Index)
	case KindPathTraversal:
		return fmt.Sprintf("<file name=%q> at index %d: %v", e.Name, e.Index, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}
