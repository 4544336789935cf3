// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// EncodeFlat encodes the values in little-endian, the layout of the constant buffers of the native SDKs.
// T must have a fixed size: it panics for int and uint.
func EncodeFlat[T constraints.Integer | constraints.Float](values []T) []byte {
	buf, err := binary.Append(make([]byte, 0, len(values)*8), binary.LittleEndian, values)
	if err != nil {
		panic(errors.Wrapf(err, "encoding constant of type %T", values))
	}
	return buf
}
