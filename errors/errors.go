package errors

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Details holds additional error details that can be viewed and logged.
type Details map[string]interface{}

// Error is the general error type for appearing errors in lumid.
type Error struct {
	// Code is the error code.
	Code Code
	// Kind describes the actual cause in more detail than Code.
	Kind Kind
	// Err is the original error that occurred.
	Err error
	// Message is the manually created message that can be used in order to trace the error.
	Message string
	// Details holds any error details.
	Details Details
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Cast casts the given error to Error. If the given one is not of type Error,
// an unknown one with error code ErrUnexpected is created and false returned.
func Cast(err error) (Error, bool) {
	e, ok := err.(Error)
	if ok {
		return e, true
	}
	return Error{
		Code:    ErrUnexpected,
		Kind:    KindUnknown,
		Err:     err,
		Message: "unknown operation",
		Details: make(Details),
	}, false
}

// Wrap wraps the given error with the given message and optional Details.
func Wrap(err error, message string, details Details) error {
	e, ok := Cast(err)
	if ok {
		e.Message = fmt.Sprintf("%s: %s", message, e.Message)
	} else {
		e.Message = message
	}
	e.Details = mergeDetails(e.Details, details)
	return e
}

// mergeDetails adds the given additions to base. A colliding key keeps its
// previous value under an underscore-prefixed key.
func mergeDetails(base Details, additions Details) Details {
	if additions == nil {
		return base
	}
	if base == nil {
		base = make(Details)
	}
	for k, v := range additions {
		if previous, ok := base[k]; ok {
			base[fmt.Sprintf("_%s", k)] = previous
		}
		base[k] = v
	}
	return base
}

// detailsAsJSON encodes the Details of the given Error as JSON string.
func detailsAsJSON(logger *zap.Logger, err error) []byte {
	e, _ := Cast(err)
	if e.Details == nil {
		return nil
	}
	b, err := json.Marshal(e.Details)
	if err != nil {
		Log(logger, Error{
			Code:    ErrInternal,
			Message: "marshal error details",
			Err:     err,
			Details: Details{
				"toMarshal": fmt.Sprintf("%+v", e.Details),
			},
		})
		return nil
	}
	return b
}

// fieldsOf flattens the given Error and its details into zap fields.
func fieldsOf(e Error) []zap.Field {
	fields := make([]zap.Field, 0, len(e.Details)+3)
	fields = append(fields, zap.String("err_code", string(e.Code)))
	if e.Kind != "" {
		fields = append(fields, zap.String("err_kind", string(e.Kind)))
	}
	if e.Err != nil {
		fields = append(fields, zap.String("err_orig", e.Err.Error()))
	}
	// Each details entry becomes a separate field for better readability.
	for k, v := range e.Details {
		fields = append(fields, zap.Any(fmt.Sprintf("err_details_%s", k), v))
	}
	return fields
}

// Log logs the given error with its details. If the error is ErrFatal, the
// error will be logged as fatal, user-caused errors are logged as warnings.
func Log(logger *zap.Logger, err error) {
	e, _ := Cast(err)
	entry := logger.With(fieldsOf(e)...)
	switch {
	case e.Code == ErrFatal:
		entry.Fatal(e.Error())
	case BlameUser(e):
		entry.Warn(e.Error())
	default:
		entry.Error(e.Error())
	}
}

// Prettify returns a detailed error string with error details.
func Prettify(logger *zap.Logger, err error) string {
	e, _ := Cast(err)
	return fmt.Sprintf("Code: %s\nKind: %s\nOriginal Error: %+v\nMessage: %s\nDetails: %s\n",
		e.Code, e.Kind, e.Err, e.Message, detailsAsJSON(logger, e))
}

// BlameUser checks if the given error is ErrBadRequest, ErrProtocolViolation or
// ErrNotFound.
func BlameUser(err error) bool {
	e, ok := Cast(err)
	if !ok {
		return false
	}
	switch e.Code {
	case ErrBadRequest, ErrProtocolViolation, ErrNotFound:
		return true
	}
	return false
}
