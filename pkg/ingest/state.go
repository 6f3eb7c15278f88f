package ingest

import (
	"fmt"

	"rag-workspace-be/internal/entity"
)

// transitions is the legal forward-only edge set of the document state
// machine. Failed is reachable from any non-terminal state; deleting is
// reachable from any state; neither failed nor deleted moves forward again
// except through deletion.
var transitions = map[string][]string{
	entity.DocumentStatusPending:   {entity.DocumentStatusParsing, entity.DocumentStatusFailed, entity.DocumentStatusDeleting},
	entity.DocumentStatusParsing:   {entity.DocumentStatusChunking, entity.DocumentStatusFailed, entity.DocumentStatusDeleting},
	entity.DocumentStatusChunking:  {entity.DocumentStatusEmbedding, entity.DocumentStatusIndexing, entity.DocumentStatusFailed, entity.DocumentStatusDeleting},
	entity.DocumentStatusEmbedding: {entity.DocumentStatusIndexing, entity.DocumentStatusFailed, entity.DocumentStatusDeleting},
	entity.DocumentStatusIndexing:  {entity.DocumentStatusReady, entity.DocumentStatusFailed, entity.DocumentStatusDeleting},
	entity.DocumentStatusReady:     {entity.DocumentStatusDeleting},
	entity.DocumentStatusFailed:    {entity.DocumentStatusDeleting},
	entity.DocumentStatusDeleting:  {entity.DocumentStatusDeleted},
	entity.DocumentStatusDeleted:   {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError names an illegal edge. Callers use it to tell a document
// that left the pipeline's hands (concurrent delete) from a genuine failure.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal document status transition %s -> %s", e.From, e.To)
}

// Transition validates the move and returns the new status, or an error
// naming the illegal edge.
func Transition(from, to string) (string, error) {
	if !CanTransition(from, to) {
		return "", &TransitionError{From: from, To: to}
	}
	return to, nil
}

// IsTerminal reports whether a document can make no further progress on its
// own (only deletion applies).
func IsTerminal(status string) bool {
	switch status {
	case entity.DocumentStatusReady, entity.DocumentStatusFailed, entity.DocumentStatusDeleted:
		return true
	}
	return false
}
