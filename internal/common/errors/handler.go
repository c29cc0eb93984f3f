// internal/common/errors/handler.go
package errors

// ErrorHandler logs errors that must not escape a background loop: a failed
// pass, a log append that found no order, a storage hiccup. It never returns
// the error; the caller continues with the next order or the next tick.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err and logs it with the given context fields. Not-found
// outcomes are logged at warn level since they are expected during
// concurrent edits of the order collection.
func (h *ErrorHandler) Handle(operation string, err error, fields map[string]interface{}) {
	if err == nil {
		return
	}
	stdErr := Normalize(err)

	entry := map[string]interface{}{
		"operation": operation,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
		"category":  GetErrorCategory(stdErr.Code),
	}
	for k, v := range fields {
		entry[k] = v
	}

	if GetErrorCategory(stdErr.Code) == CategoryNotFound {
		h.logger.Warn(operation+" skipped", entry)
		return
	}
	h.logger.Error(operation+" failed", entry)
}

const (
	CategoryNotFound   = "not_found"
	CategoryStorage    = "storage"
	CategoryTransport  = "transport"
	CategoryValidation = "validation"
	CategoryInternal   = "internal"
)

// GetErrorCategory groups codes into the taxonomy used for logging.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeOrderNotFound, ErrCodeNotificationNotFound, ErrCodeSettingsNotFound:
		return CategoryNotFound
	case ErrCodeStorageReadFailed, ErrCodeStorageWriteFailed:
		return CategoryStorage
	case ErrCodeNotificationSendFailed, ErrCodeRecipientMissing:
		return CategoryTransport
	case ErrCodeInvalidSettings, ErrCodeInvalidRequest, ErrCodeChannelDisabled, ErrCodeTemplateNotFound:
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
