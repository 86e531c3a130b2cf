package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"storage code", ErrCodeFileNotFound, CategoryStorage},
		{"rerank code", ErrCodeRerankFailed, CategoryRerank},
		{"validation code", ErrCodeQueryTooShort, CategoryValidation},
		{"internal code", ErrCodeRerankCardinality, CategoryInternal},
		{"registry code", ErrCodeDuplicateName, CategoryRegistry},
		{"malformed code", "ERR", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "message", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_RecoverableOnlyForRerankOutcomes(t *testing.T) {
	assert.True(t, IsRecoverable(New(ErrCodeRerankFailed, "scorer timeout", nil)))
	assert.True(t, IsRecoverable(New(ErrCodeRerankUnavailable, "model not loaded", nil)))
	assert.True(t, IsRecoverable(New(ErrCodeRerankCardinality, "48 of 50 scored", nil)))

	assert.False(t, IsRecoverable(New(ErrCodeFileNotFound, "missing", nil)))
	assert.False(t, IsRecoverable(New(ErrCodeQueryTooShort, "too short", nil)))
	assert.False(t, IsRecoverable(nil))
}

func TestConsistencyError_IsFatal(t *testing.T) {
	// A cardinality mismatch is always fatal to the rerank call, even
	// though the coordinator recovers by falling back to stage 1.
	err := ConsistencyError("reranker returned 48 scores for 50 candidates")
	assert.True(t, IsFatal(err))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, ErrCodeRerankCardinality, err.Code)
}

func TestIs_MatchesByCode(t *testing.T) {
	err := NotFoundError("missing-store")
	target := New(ErrCodeStoreNotFound, "", nil)

	assert.True(t, stderrors.Is(err, target))
	assert.False(t, stderrors.Is(err, New(ErrCodeDuplicateName, "", nil)))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("read: unexpected EOF")
	err := Wrap(ErrCodeFileCorrupt, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.Contains(t, err.Error(), "ERR_202_FILE_CORRUPT")

	assert.Nil(t, Wrap(ErrCodeFileCorrupt, nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := MissingFileError("/data/scenes.col").
		WithDetail("store", "campaign-1")

	assert.Equal(t, "campaign-1", err.Details["store"])
	assert.Equal(t, ErrCodeFileNotFound, err.Code)

	dup := DuplicateNameError("campaign-1")
	assert.NotEmpty(t, dup.Suggestion)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeStoreNotLoaded, GetCode(StoreNotLoadedError("x")))
	assert.Empty(t, GetCode(fmt.Errorf("plain error")))
}
