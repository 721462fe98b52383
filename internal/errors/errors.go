// Package errors re-exports github.com/cockroachdb/errors so the rest of the
// module has one import for creating, wrapping and inspecting errors.
//
//	if err := store.SaveState(ctx, id, snap); err != nil {
//	    return errors.Wrapf(err, "save state %s", id)
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
	GetAllHints = crdb.GetAllHints
)

var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Mark tags err so that errors.Is(err, reference) holds without changing the message.
var Mark = crdb.Mark
