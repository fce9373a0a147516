// Package errors is the single import for error construction and inspection.
// Inspection and sentinels come from the standard library; every wrapping
// helper is pkg/errors so each wrap point records a stack trace.
package errors

import (
	stderrors "errors"

	pkgerrors "github.com/pkg/errors"
)

//nolint:gochecknoglobals
var (
	// New builds sentinels, which carry no stack trace.
	New  = stderrors.New
	Is   = stderrors.Is
	As   = stderrors.As
	Join = stderrors.Join

	Wrap      = pkgerrors.Wrap
	Wrapf     = pkgerrors.Wrapf
	WithStack = pkgerrors.WithStack
	Errorf    = pkgerrors.Errorf
)
