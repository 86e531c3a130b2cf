// Package errors provides structured error handling for NaRAGtive.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index files, registry file)
//   - 3XX: Rerank and network errors
//   - 4XX: Validation errors
//   - 5XX: Internal and consistency errors
//   - 6XX: Registry errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index and registry file I/O errors.
	CategoryStorage Category = "STORAGE"
	// CategoryRerank indicates reranker and network errors.
	CategoryRerank Category = "RERANK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryRegistry indicates store registry errors.
	CategoryRegistry Category = "REGISTRY"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileCorrupt     = "ERR_202_FILE_CORRUPT"
	ErrCodeRegistryCorrupt = "ERR_203_REGISTRY_CORRUPT"
	ErrCodeSaveFailed      = "ERR_204_SAVE_FAILED"

	// Rerank and network errors (300-399)
	ErrCodeRerankFailed      = "ERR_301_RERANK_FAILED"
	ErrCodeRerankUnavailable = "ERR_302_RERANK_UNAVAILABLE"
	ErrCodeEmbedFailed       = "ERR_303_EMBED_FAILED"

	// Validation errors (400-499)
	ErrCodeQueryTooShort     = "ERR_401_QUERY_TOO_SHORT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeEmptyIndex        = "ERR_403_EMPTY_INDEX"
	ErrCodeInvalidInput      = "ERR_404_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeRerankCardinality = "ERR_502_RERANK_CARDINALITY"

	// Registry errors (600-699)
	ErrCodeDuplicateName  = "ERR_601_DUPLICATE_NAME"
	ErrCodeStoreNotFound  = "ERR_602_STORE_NOT_FOUND"
	ErrCodeStoreNotLoaded = "ERR_603_STORE_NOT_LOADED"
	ErrCodeNoDefaultStore = "ERR_604_NO_DEFAULT_STORE"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Leading digit of the numeric portion (e.g., '2' in "ERR_201_...").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryRerank
	case '4':
		return CategoryValidation
	case '6':
		return CategoryRegistry
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeRerankCardinality, ErrCodeRegistryCorrupt:
		// Cardinality violations are invariant defects; a corrupt
		// registry must never be partially parsed past.
		return SeverityFatal
	case ErrCodeRerankFailed, ErrCodeRerankUnavailable:
		// Stage-2 failures degrade to stage-1 ordering.
		return SeverityWarning
	}
	return SeverityError
}

// isRecoverableCode reports whether a failed search stage permits
// stage-1 fallback. Only stage-2 (rerank) outcomes are recoverable;
// everything else aborts the call.
func isRecoverableCode(code string) bool {
	switch code {
	case ErrCodeRerankFailed, ErrCodeRerankUnavailable, ErrCodeRerankCardinality:
		return true
	default:
		return false
	}
}
