package vector

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrew/vecdash/pkg/models"
	"github.com/andrew/vecdash/pkg/session"
)

var (
	// ErrConnection is returned when the database endpoint is unreachable or the session was lost
	ErrConnection = session.ErrConnection
	// ErrCollectionCreate wraps failures to create a collection
	ErrCollectionCreate = errors.New("collection create failed")
	// ErrCollectionDelete wraps failures to delete a collection
	ErrCollectionDelete = errors.New("collection delete failed")
	// ErrCollectionNotFound is returned when an operation names a collection that does not exist
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidInput is returned for malformed JSON or missing arguments
	ErrInvalidInput = errors.New("invalid input")
)

// PartialFailureError reports a bulk insert where some records were not stored
type PartialFailureError struct {
	Collection string
	Failed     int
	Aborted    bool
	First      *models.Failure
}

func (e *PartialFailureError) Error() string {
	msg := fmt.Sprintf("number of failed inserts for '%s': %d", e.Collection, e.Failed)
	if e.Aborted {
		msg += " (import stopped due to excessive errors)"
	}
	if e.First != nil {
		msg += "; first failure: " + e.First.String()
	}
	return msg
}

// classify tags err with ErrConnection or ErrCollectionNotFound when the gRPC status says so
func classify(err error) error {
	if err == nil || errors.Is(err, ErrConnection) || errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %w", ErrCollectionNotFound, err)
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return err
}
