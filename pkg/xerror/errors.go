// Copyright 2021 The VPN House Authors. All rights reserved.
// Use of this source code is governed by a AGPL-style
// license that can be found in the LICENSE file.

package xerror

import (
	"fmt"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vpnhouse/bpflimit/pkg/version"
	"go.uber.org/zap"
)

var errorByCodeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "errors",
	Name:      "by_code",
	Help:      "number of errors partitioned by code, failed field, and version info",
}, []string{"code_name", "field", "tag", "commit", "caller"})

func init() {
	prometheus.MustRegister(errorByCodeCounter)
}

type ErrorType struct {
	codeName string
}

func (t *ErrorType) String() string {
	return t.codeName
}

var (
	EInternalErrorType        = &ErrorType{"INTERNAL_ERROR"}
	EInvalidArgumentType      = &ErrorType{"INVALID_ARGUMENT"}
	EInvalidConfigurationType = &ErrorType{"INVALID_CONFIGURATION"}
)

func EInternalError(description string, err error, fields ...zap.Field) *Error {
	return newError(EInternalErrorType, description, err, nil, fields...)
}

func EInvalidArgument(description string, err error, fields ...zap.Field) *Error {
	return newError(EInvalidArgumentType, description, err, nil, fields...)
}

// EInvalidField reports a bad value of the named option or setting.
func EInvalidField(description string, failedField string, err error, fields ...zap.Field) *Error {
	return newError(EInvalidArgumentType, description, err, &failedField, fields...)
}

func EInvalidConfiguration(msg string, field string) *Error {
	return newError(EInvalidConfigurationType, msg, nil, &field)
}

type Error struct {
	errorType   *ErrorType
	description string
	nestedError error
	failedField *string
}

func (e *Error) Is(target error) bool {
	if err2, ok := target.(*Error); ok {
		return e.errorType == err2.errorType
	}

	return false
}

func (e *Error) Unwrap() error {
	return e.nestedError
}

func (e *Error) Error() string {
	text := e.description
	if e.nestedError != nil {
		text = text + ": " + e.nestedError.Error()
	}
	return text
}

func (e *Error) Type() *ErrorType {
	return e.errorType
}

// Field returns the option or setting the error is about, if any.
func (e *Error) Field() string {
	if e.failedField == nil {
		return ""
	}
	return *e.failedField
}

func newError(errorType *ErrorType, description string, err error, failedField *string, fields ...zap.Field) *Error {
	e := &Error{
		errorType:   errorType,
		description: description,
		nestedError: err,
		failedField: failedField,
	}

	countError(e)
	if failedField != nil {
		fields = append(fields, zap.String("field", *failedField))
	}
	zap.L().Debug(e.Error(), fields...)
	return e
}

func countError(e *Error) {
	errorByCodeCounter.WithLabelValues(
		e.errorType.codeName,
		e.Field(),
		version.GetTag(),
		version.GetCommit(),
		getCaller(),
	).Inc()
}

func getCaller() string {
	// skip callers in this file, so (srcFile, line) points
	// to the one who invoked xerror.EInvalidArgument(...)
	_, srcFile, line, ok := runtime.Caller(4)
	if !ok {
		return "unknown"
	}

	srcFile = cutCallerFilePath(srcFile)
	return fmt.Sprintf("%s:%d", srcFile, line)
}

// /home/user/src/project/package/foo.go -> package/foo.go
func cutCallerFilePath(file string) string {
	oneSlash := false
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == os.PathSeparator {
			if oneSlash {
				file = file[i+1:]
				break
			}
			oneSlash = true
		}
	}
	return file
}
