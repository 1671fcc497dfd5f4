// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.
//
// Cao-Lang is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cao-Lang is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Cao-Lang. If not, see <http://www.gnu.org/licenses/>.

// Package caoerr defines the compile-time and run-time error taxonomy shared
// by the compiler and the VM, per the structured error contract: every
// compile error carries a source trace, every runtime error carries a stack
// of traces reconstructed from the program's trace table.
package caoerr

import (
	"fmt"

	"github.com/go-stack/stack"
)

// Trace locates an instruction or card in the original card tree: the dotted
// namespace path of the function it belongs to, and the index of the card
// within that function's body.
type Trace struct {
	Namespace []string
	CardIndex uint32
}

func (t Trace) String() string {
	if len(t.Namespace) == 0 {
		return fmt.Sprintf("<unknown>#%d", t.CardIndex)
	}
	ns := t.Namespace[0]
	for _, s := range t.Namespace[1:] {
		ns += "." + s
	}
	return fmt.Sprintf("%s#%d", ns, t.CardIndex)
}

// ---- Compile errors ---------------------------------------------------

// CompileErrorKind enumerates the payload kinds a CompileError may carry.
type CompileErrorKind int

const (
	EmptyProgram CompileErrorKind = iota
	NoMain
	TooManyFunctions
	TooManyCards
	TooManyLocals
	BadImport
	BadFunctionName
	BadVariableName
	EmptyVariable
	InvalidJump
	DuplicateName
	Unimplemented
	RecursionLimitReached
	InternalError
)

var compileErrorNames = [...]string{
	EmptyProgram:           "EmptyProgram",
	NoMain:                 "NoMain",
	TooManyFunctions:       "TooManyFunctions",
	TooManyCards:           "TooManyCards",
	TooManyLocals:          "TooManyLocals",
	BadImport:              "BadImport",
	BadFunctionName:        "BadFunctionName",
	BadVariableName:        "BadVariableName",
	EmptyVariable:          "EmptyVariable",
	InvalidJump:            "InvalidJump",
	DuplicateName:          "DuplicateName",
	Unimplemented:          "Unimplemented",
	RecursionLimitReached:  "RecursionLimitReached",
	InternalError:          "InternalError",
}

func (k CompileErrorKind) String() string {
	if int(k) < len(compileErrorNames) {
		return compileErrorNames[k]
	}
	return fmt.Sprintf("CompileErrorKind(%d)", int(k))
}

// CompileError is returned by the compiler. It always carries the trace of
// the card being compiled when the error was raised; no partial program is
// ever produced alongside it.
type CompileError struct {
	Kind    CompileErrorKind
	Detail  string // e.g. the bad name, the feature left unimplemented
	Trace   Trace
	Wrapped error // set for InternalError, wraps the underlying Go error
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("compile error: %s at %s", e.Kind, e.Trace)
	}
	return fmt.Sprintf("compile error: %s (%s) at %s", e.Kind, e.Detail, e.Trace)
}

func (e *CompileError) Unwrap() error { return e.Wrapped }

// NewCompileError builds a CompileError with the given kind, detail and
// trace. detail may be empty.
func NewCompileError(kind CompileErrorKind, detail string, trace Trace) *CompileError {
	return &CompileError{Kind: kind, Detail: detail, Trace: trace}
}

// NewInternalError wraps an unexpected Go-level error (a bug in the compiler
// itself) together with the Go call stack that observed it, so host
// developers embedding Cao-Lang can file a precise report upstream.
func NewInternalError(cause error, trace Trace) *CompileError {
	return &CompileError{
		Kind:    InternalError,
		Detail:  stack.Trace().TrimRuntime().String(),
		Trace:   trace,
		Wrapped: cause,
	}
}

// ---- Runtime errors -----------------------------------------------------

// RuntimePayloadKind enumerates the payload kinds a RuntimeError may carry.
type RuntimePayloadKind int

const (
	Stackoverflow RuntimePayloadKind = iota
	CallStackOverflow
	OutOfMemory
	Timeout
	InvalidArgument
	MissingArgument
	Unhashable
	InvalidUpvalue
	NotClosure
	VarNotFound
	ProcedureNotFound
	ExitCode
	BadReturn
	TaskFailure
	AssertionError
	RuntimeUnimplemented
	NotCallable
	InternalRuntimeError
)

var runtimePayloadNames = [...]string{
	Stackoverflow:         "Stackoverflow",
	CallStackOverflow:     "CallStackOverflow",
	OutOfMemory:           "OutOfMemory",
	Timeout:               "Timeout",
	InvalidArgument:       "InvalidArgument",
	MissingArgument:       "MissingArgument",
	Unhashable:            "Unhashable",
	InvalidUpvalue:        "InvalidUpvalue",
	NotClosure:            "NotClosure",
	VarNotFound:           "VarNotFound",
	ProcedureNotFound:     "ProcedureNotFound",
	ExitCode:              "ExitCode",
	BadReturn:             "BadReturn",
	TaskFailure:           "TaskFailure",
	AssertionError:        "AssertionError",
	RuntimeUnimplemented:  "Unimplemented",
	NotCallable:           "NotCallable",
	InternalRuntimeError:  "InternalError",
}

func (k RuntimePayloadKind) String() string {
	if int(k) < len(runtimePayloadNames) {
		return runtimePayloadNames[k]
	}
	return fmt.Sprintf("RuntimePayloadKind(%d)", int(k))
}

// RuntimeError is returned by Vm.Run. It carries a reconstructed stack trace
// (innermost frame first) and, for TaskFailure, the native callback's
// original error.
type RuntimeError struct {
	Kind    RuntimePayloadKind
	Context string // free-form detail: variable name, argument index, exit code, ...
	Code    int    // populated for ExitCode
	Stack   []Trace
	Wrapped error // populated for TaskFailure
}

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("runtime error: %s", e.Kind)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if len(e.Stack) > 0 {
		msg += fmt.Sprintf(" (at %s)", e.Stack[0])
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Wrapped }

// NewRuntimeError constructs a RuntimeError with the given context and no trace;
// the VM fills in the trace stack as the error unwinds call frames.
func NewRuntimeError(kind RuntimePayloadKind, context string) *RuntimeError {
	return &RuntimeError{Kind: kind, Context: context}
}

// WithTrace returns a copy of e with t appended to the trace stack. Called by
// the VM once per unwound call frame so that Stack[0] is the innermost frame.
func (e *RuntimeError) WithTrace(t Trace) *RuntimeError {
	cp := *e
	cp.Stack = append(append([]Trace(nil), e.Stack...), t)
	return &cp
}

// TaskFailure wraps a native callback's error as it unwinds the VM.
func NewTaskFailure(name string, cause error) *RuntimeError {
	return &RuntimeError{
		Kind:    TaskFailure,
		Context: name,
		Wrapped: cause,
	}
}
