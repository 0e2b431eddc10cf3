package applications

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("document store is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingGateway    = errors.New("gateway is required")
	errMissingEngine     = errors.New("lifecycle engine is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable code of the form applications.<operation>.<reason>.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opGatewayNew     = "applications.gateway.new"
	opGatewayLoad    = "applications.gateway.load"
	opGatewayStore   = "applications.gateway.store"
	opEngineNew      = "applications.engine.new"
	opServiceNew     = "applications.service.new"
	opList           = "applications.list"
	opGet            = "applications.get"
	opCreate         = "applications.create"
	opUpdate         = "applications.update"
	opDelete         = "applications.delete"
	opAddNote        = "applications.add_note"
	opChangeStatus   = "applications.change_status"
	opTimeline       = "applications.timeline"
	opCalendar       = "applications.calendar"
	reasonInvalid    = "invalid_input"
	reasonReadFailed = "read_failed"
	reasonDecode     = "decode_failed"
	reasonEncode     = "encode_failed"
	reasonWrite      = "write_failed"
	reasonIDFailed   = "id_generation_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

func storageFailure(operation, reason string, cause error) error {
	return newServiceError(operation, reason, fmt.Errorf("%w: %w", ErrStorageFailure, cause))
}

func logServiceError(logger *zap.Logger, operation, reason string, err error, fields ...zap.Field) {
	if logger == nil {
		logger = noOpLogger
	}
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger.Error("applications service error", attrs...)
}
