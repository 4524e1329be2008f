// Package errors provides structured error handling for mdsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Extraction errors (encoding, metadata)
//   - 4XX: Validation errors (rejected before reaching the ranker)
//   - 5XX: Store errors (catalog, queue, internal)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryExtraction indicates a document could not be decoded or parsed.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryStore indicates index store or pipeline errors.
	CategoryStore Category = "STORE"
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

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeFileTooLarge   = "ERR_203_FILE_TOO_LARGE"
	ErrCodeOutsideRoot    = "ERR_204_PATH_OUTSIDE_ROOT"

	// Extraction errors (300-399)
	ErrCodeUnsupportedEncoding = "ERR_301_UNSUPPORTED_ENCODING"
	ErrCodeMalformedMetadata   = "ERR_302_MALFORMED_METADATA"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeQueryTooLong      = "ERR_403_QUERY_TOO_LONG"
	ErrCodeInvalidPagination = "ERR_404_INVALID_PAGINATION"
	ErrCodeInvalidPath       = "ERR_405_INVALID_PATH"
	ErrCodeInvalidID         = "ERR_406_INVALID_ID"
	ErrCodeDocumentNotFound  = "ERR_407_DOCUMENT_NOT_FOUND"

	// Store errors (500-599)
	ErrCodeStoreUnavailable = "ERR_501_STORE_UNAVAILABLE"
	ErrCodeCorruptCatalog   = "ERR_502_CORRUPT_CATALOG"
	ErrCodeQueueOverflow    = "ERR_503_QUEUE_OVERFLOW"
	ErrCodeStoreBusy        = "ERR_504_STORE_BUSY"
	ErrCodeInternal         = "ERR_505_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryStore
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryExtraction
	case '4':
		return CategoryValidation
	default:
		return CategoryStore
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptCatalog:
		return SeverityFatal
	case ErrCodeMalformedMetadata, ErrCodeQueueOverflow:
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	return code == ErrCodeStoreBusy
}
