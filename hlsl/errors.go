// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "fmt"

// ErrorKind categorizes shader backend errors.
type ErrorKind uint8

const (
	// ErrCompile indicates the shader compiler rejected the source.
	ErrCompile ErrorKind = iota

	// ErrReflection indicates compiled bytecode could not be reflected.
	ErrReflection

	// ErrInvalidBytecode indicates bytecode is not a valid shader container.
	ErrInvalidBytecode

	// ErrInvalidFeatureLevel indicates an invalid or unsupported feature level.
	ErrInvalidFeatureLevel

	// ErrCompilerNotFound indicates the external compiler executable is missing.
	ErrCompilerNotFound

	// ErrInternalError indicates an internal compiler error.
	ErrInternalError
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrCompile:
		return "Compile"
	case ErrReflection:
		return "Reflection"
	case ErrInvalidBytecode:
		return "InvalidBytecode"
	case ErrInvalidFeatureLevel:
		return "InvalidFeatureLevel"
	case ErrCompilerNotFound:
		return "CompilerNotFound"
	case ErrInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error represents a shader backend error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// EntryPoint and Profile identify the compile request, when known.
	EntryPoint string
	Profile    string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.EntryPoint != "" {
		return fmt.Sprintf("hlsl %s (%s %s): %s", e.Kind, e.Profile, e.EntryPoint, e.Message)
	}
	return fmt.Sprintf("hlsl %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new backend error without request information.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// IsCompile returns true if the error is ErrCompile.
func (e *Error) IsCompile() bool {
	return e.Kind == ErrCompile
}

// IsInternalError returns true if the error is ErrInternalError.
func (e *Error) IsInternalError() bool {
	return e.Kind == ErrInternalError
}
