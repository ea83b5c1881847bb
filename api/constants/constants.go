package constants

// Common error messages
const (
	ErrMissingOrganization = "organization header is required"
	ErrInvalidOrganization = "organization header must be a positive integer"
	ErrMissingFile         = "file is required"
	ErrInvalidFiscalYear   = "fiscal_year must be an integer between 1900 and 2100"
	ErrInvalidForm         = "invalid multipart form"
	ErrFileTooLarge        = "uploaded file exceeds the size limit"
	ErrReadFile            = "failed to read uploaded file"
	ErrInvalidLimit        = "limit must be a positive integer"
	ErrStoreUnavailable    = "ledger store unavailable"
	ErrInternal            = "internal server error"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)

// Request fields
const (
	DefaultOrganizationHeader = "X-Organization-ID"
	FormFile                  = "file"
	FormFiscalYear            = "fiscal_year"
	MinFiscalYear             = 1900
	MaxFiscalYear             = 2100
)
