// Package errors provides structured error handling for minirag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and IO errors
//   - 3XX: Retriever/collaborator errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, disk, and index storage errors.
	CategoryIO Category = "IO"
	// CategoryRetriever indicates errors from a retrieval collaborator.
	CategoryRetriever Category = "RETRIEVER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage/IO errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeDiskFull      = "ERR_202_DISK_FULL"
	ErrCodeCorruptIndex  = "ERR_203_CORRUPT_INDEX"
	ErrCodeIngestLocked  = "ERR_204_INGEST_LOCKED"
	ErrCodeExtractFailed = "ERR_205_EXTRACT_FAILED"

	// Retriever errors (300-399)
	ErrCodeRetrieverTimeout     = "ERR_301_RETRIEVER_TIMEOUT"
	ErrCodeRetrieverUnavailable = "ERR_302_RETRIEVER_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput       = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty         = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidTopK        = "ERR_403_INVALID_TOP_K"
	ErrCodeInvalidMode        = "ERR_404_INVALID_MODE"
	ErrCodeDimensionMismatch  = "ERR_405_DIMENSION_MISMATCH"
	ErrCodeTruncationBoundary = "ERR_406_TRUNCATION_BOUNDARY"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeNoEvidence      = "ERR_502_NO_EVIDENCE"
	ErrCodeEmbeddingFailed = "ERR_503_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_504_SEARCH_FAILED"
	ErrCodeChunkingFailed  = "ERR_505_CHUNKING_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryRetriever
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDiskFull:
		return SeverityFatal
	}

	// No-evidence is a degradation signal, not a failure.
	if code == ErrCodeNoEvidence {
		return SeverityInfo
	}

	// Retryable retriever errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRetrieverTimeout, ErrCodeRetrieverUnavailable:
		return true
	default:
		return false
	}
}
