package wscompile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelaxationError_UnwrapsToNoCandidates(t *testing.T) {
	err := &RelaxationError{Relaxed: []string{"max_doc_age_days"}}

	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestRelaxationError_MessageListsRelaxedFilters(t *testing.T) {
	err := &RelaxationError{Relaxed: []string{"max_doc_age_days", "paths"}}

	assert.Contains(t, err.Error(), "max_doc_age_days, paths")
}

func TestRelaxationError_MessageWithoutRelaxedFiltersFallsBackToBase(t *testing.T) {
	err := &RelaxationError{}

	assert.Equal(t, ErrNoCandidates.Error(), err.Error())
}

func TestErrors_AreDistinctSentinels(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidBudget, ErrEmptyRequest))
	assert.False(t, errors.Is(ErrAllGeneratorsFailed, ErrNoCandidates))
}
