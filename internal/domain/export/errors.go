package export

import "errors"

var (
	ErrUnknownKind     = errors.New("unknown report kind")
	ErrExportFailed    = errors.New("failed to export report")
	ErrEmptyPayload    = errors.New("report payload is empty")
	ErrMonthRequired   = errors.New("report month is required")
	ErrDateRequired    = errors.New("report date is required")
	ErrSingleEmployee  = errors.New("exactly one employee must be selected")
	ErrKindNotOffered  = errors.New("report kind is not offered on this screen")
	ErrDownloadMissing = errors.New("download not found")
)
