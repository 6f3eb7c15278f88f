package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline and chat engines. Services wrap these with
// context; the HTTP layer maps them to status codes in serverutils.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConfigImmutable    = errors.New("rag config is immutable; create a new workspace to change strategy")
	ErrGenerationInFlight = errors.New("a generation is already in flight for this session")
	ErrRetrieval          = errors.New("retrieval store unavailable")
	ErrCancelled          = errors.New("generation cancelled")
)

// InvalidConfigError names the offending field so the caller can fix it.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid rag config: %s: %s", e.Field, e.Reason)
}

func InvalidConfig(field, reason string) error {
	return &InvalidConfigError{Field: field, Reason: reason}
}

// StageError records which ingestion stage a document failed in.
type StageError struct {
	Stage string // "parse", "chunk", "embed", "index", "extract"
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func ParseError(err error) error  { return &StageError{Stage: "parse", Err: err} }
func ChunkError(err error) error  { return &StageError{Stage: "chunk", Err: err} }
func EmbedError(err error) error  { return &StageError{Stage: "embed", Err: err} }
func IndexError(err error) error  { return &StageError{Stage: "index", Err: err} }
func GraphError(err error) error  { return &StageError{Stage: "extract", Err: err} }
