package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchResult_RecordFailureKeepsFirst(t *testing.T) {
	var r BatchResult
	assert.True(t, r.OK())

	r.RecordFailure(3, "first")
	r.RecordFailure(7, "second")

	assert.False(t, r.OK())
	assert.Equal(t, 2, r.Failed)
	require.NotNil(t, r.FirstFailure)
	assert.Equal(t, "record 3: first", r.FirstFailure.String())
}

func TestSearchResultConstructors(t *testing.T) {
	found := Found([]Record{{"t": "a"}})
	assert.Equal(t, SearchFound, found.Status)
	assert.Len(t, found.Records, 1)
	assert.Empty(t, found.Message)

	empty := Empty()
	assert.Equal(t, SearchEmpty, empty.Status)
	assert.Equal(t, NoResultsMessage, empty.Message)

	cause := errors.New("unreachable")
	failed := Failed(cause)
	assert.Equal(t, SearchFailed, failed.Status)
	assert.Equal(t, SearchErrorMessage, failed.Message)
	assert.ErrorIs(t, failed.Err, cause)
}
