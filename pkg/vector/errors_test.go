package vector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrew/vecdash/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "no such collection"), ErrCollectionNotFound},
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), ErrConnection},
		{"deadline", status.Error(codes.DeadlineExceeded, "timeout"), ErrConnection},
		{"already tagged", ErrConnection, ErrConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}

	assert.NoError(t, classify(nil))

	internal := status.Error(codes.Internal, "boom")
	assert.Equal(t, internal, classify(internal))

	plain := errors.New("plain")
	assert.Equal(t, plain, classify(plain))
}

func TestPartialFailureError(t *testing.T) {
	err := &PartialFailureError{Collection: "snippets", Failed: 3}
	assert.Equal(t, "number of failed inserts for 'snippets': 3", err.Error())

	err.Aborted = true
	err.First = &models.Failure{Index: 4, Reason: "no text properties to vectorize"}
	assert.Equal(t,
		"number of failed inserts for 'snippets': 3 (import stopped due to excessive errors); first failure: record 4: no text properties to vectorize",
		err.Error())
}
