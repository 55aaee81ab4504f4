package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProgress(t *testing.T) {
	p := BatchProgress{Total: 3}
	assert.Equal(t, "0.00%", p.String())

	p.Increment()
	assert.Equal(t, "33.33%", p.String())

	p.Increment()
	assert.Equal(t, 2, p.Completed)
	assert.Equal(t, "66.67%", p.String())
}

func TestBatchProgress_EmptyList(t *testing.T) {
	assert.Equal(t, float64(0), BatchProgress{}.Percent())
}

func TestBatchSummary_Record(t *testing.T) {
	s := &BatchSummary{}
	s.Record(BatchItemResult{LineIndex: 1, Identifier: "a"})
	s.Record(BatchItemResult{LineIndex: 3, Identifier: "b", Err: errors.New("boom")})

	assert.Equal(t, 2, s.Attempted)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed)

	err := s.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3 (b): boom")
}

func TestBatchSummary_ErrNilWhenAllSucceed(t *testing.T) {
	s := &BatchSummary{}
	s.Record(BatchItemResult{LineIndex: 1, Identifier: "a"})

	assert.NoError(t, s.Err())
}
