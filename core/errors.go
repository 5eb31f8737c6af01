package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PipelineErrorBadInput              = "PIPELINE_BAD_INPUT"
	PipelineErrorMissingIdempotencyKey = "PIPELINE_MISSING_IDEMPOTENCY_KEY"
	PipelineErrorUnsupportedEventKind  = "PIPELINE_UNSUPPORTED_EVENT_KIND"
	PipelineErrorNotFound              = "PIPELINE_NOT_FOUND"
	PipelineErrorInvariant             = "PIPELINE_INVARIANT_VIOLATION"
	PipelineErrorExternalCallFailed    = "PIPELINE_EXTERNAL_CALL_FAILED"
	PipelineErrorInternal              = "PIPELINE_INTERNAL_ERROR"
)

func pipelineErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensurePipelineErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "idempotency key"):
		return newPipelineError(err.Error(), goerrors.CategoryBadInput, PipelineErrorMissingIdempotencyKey)
	case strings.Contains(msg, "event type") || strings.Contains(msg, "not supported"):
		return newPipelineError(err.Error(), goerrors.CategoryBadInput, PipelineErrorUnsupportedEventKind)
	case strings.Contains(msg, "not found"):
		return newPipelineError(err.Error(), goerrors.CategoryNotFound, PipelineErrorNotFound)
	case strings.Contains(msg, "invariant"):
		return newPipelineError(err.Error(), goerrors.CategoryInternal, PipelineErrorInvariant)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newPipelineError(err.Error(), goerrors.CategoryBadInput, PipelineErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensurePipelineErrorEnvelope(mapped)
}

func newPipelineError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensurePipelineErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensurePipelineErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = pipelineHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultPipelineTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultPipelineTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return PipelineErrorBadInput
	case goerrors.CategoryNotFound:
		return PipelineErrorNotFound
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return PipelineErrorExternalCallFailed
	default:
		return PipelineErrorInternal
	}
}

func pipelineHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
