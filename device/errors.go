/*
 * === This file is part of AESOP-Lite Control ===
 *
 * Copyright 2019-2024 the AESOP-Lite collaboration.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package device

import (
	"errors"
	"fmt"
)

// Fault is implemented by every error a gateway operation can return.
// It carries the name of the failed operation for the fault ledger.
type Fault interface {
	error
	FaultOp() string
}

type faultBase struct {
	op string
}

func (f faultBase) FaultOp() string {
	return f.op
}

// CommError means the transport round trip could not complete: the serial
// write failed, the response timed out, or the response framing was broken
// beyond recovery.
type CommError struct {
	faultBase
	Err error
}

func NewCommError(op string, err error) *CommError {
	return &CommError{faultBase: faultBase{op: op}, Err: err}
}

func (e *CommError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("communication fault during %s", e.op)
	}
	return fmt.Sprintf("communication fault during %s: %s", e.op, e.Err.Error())
}

func (e *CommError) Unwrap() error {
	return e.Err
}

type MalformedKind int

const (
	MalformedIndex MalformedKind = iota
	MalformedValue
)

var malformedKindNames = []string{
	"index",
	"value",
}

func (k MalformedKind) String() string {
	if k < MalformedIndex || k > MalformedValue {
		return "value"
	}
	return malformedKindNames[k]
}

// MalformedError means a response arrived but could not be interpreted as
// the expected type: an unexpected index in the payload (MalformedIndex)
// or a decoded value out of its representable range (MalformedValue).
type MalformedError struct {
	faultBase
	Kind   MalformedKind
	Detail string
}

func NewMalformedError(op string, kind MalformedKind, detail string) *MalformedError {
	return &MalformedError{faultBase: faultBase{op: op}, Kind: kind, Detail: detail}
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s in response to %s: %s", e.Kind, e.op, e.Detail)
}

func IsCommError(err error) bool {
	var ce *CommError
	return errors.As(err, &ce)
}

func IsMalformedError(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
