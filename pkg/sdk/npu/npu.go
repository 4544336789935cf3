// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package npu models the graph builder of a vendor NPU SDK: tensors with a precision, layout and optional
// quantization parameters, connected by operators of a fixed set of types, each configured by its own
// attribute struct.
//
// The graph is only a description, compiled and executed by the device toolchain.
package npu

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnsupported is wrapped by the errors returned for tensors and operators the NPU can't handle.
var ErrUnsupported = errors.New("not supported by the NPU")

// PrecisionType of the tensor elements.
type PrecisionType int

const (
	PrecisionInvalid PrecisionType = iota
	PrecisionBool8
	PrecisionInt8
	PrecisionUint8
	PrecisionInt16
	PrecisionInt32
	PrecisionInt64
	PrecisionFloat16
	PrecisionFloat32
)

var precisionNames = [...]string{"INVALID", "BOOL8", "INT8", "UINT8", "INT16", "INT32", "INT64", "FLOAT16", "FLOAT32"}

// String implements fmt.Stringer.
func (p PrecisionType) String() string {
	if p < 0 || int(p) >= len(precisionNames) {
		return fmt.Sprintf("PrecisionType(%d)", int(p))
	}
	return precisionNames[p]
}

// Size in bytes of one element.
func (p PrecisionType) Size() int {
	switch p {
	case PrecisionBool8, PrecisionInt8, PrecisionUint8:
		return 1
	case PrecisionInt16, PrecisionFloat16:
		return 2
	case PrecisionInt32, PrecisionFloat32:
		return 4
	case PrecisionInt64:
		return 8
	}
	return 0
}

// DataLayout of the tensor axes.
type DataLayout int

const (
	LayoutNCHW DataLayout = iota
	LayoutNHWC
)

// QuantType of the tensor.
type QuantType int

const (
	QuantNone QuantType = iota
	QuantAsymmetric
	QuantSymmetricPerLayer
	QuantSymmetricPerChannel
)

var quantNames = [...]string{"NONE", "ASYMMETRIC", "SYMMETRIC_PER_LAYER", "SYMMETRIC_PER_CHANNEL"}

// String implements fmt.Stringer.
func (q QuantType) String() string {
	if q < 0 || int(q) >= len(quantNames) {
		return fmt.Sprintf("QuantType(%d)", int(q))
	}
	return quantNames[q]
}

// TensorRole tells whether a tensor holds constant data.
type TensorRole int

const (
	RoleVariable TensorRole = iota
	RoleConstant
)

// TensorAttr describes a tensor.
type TensorAttr struct {
	// Name may be empty for intermediary tensors.
	Name      string
	Precision PrecisionType
	Layout    DataLayout
	Dims      []int32

	QuantType  QuantType
	Scales     []float32
	ZeroPoints []int32
	ChannelDim int32
}

// Tensor of the graph.
type Tensor struct {
	index int
	Attr  TensorAttr
	Role  TensorRole

	// Data of constant tensors. It's referenced, not copied.
	Data []byte
}

// Index of creation in the graph.
func (t *Tensor) Index() int { return t.index }

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	name := t.Attr.Name
	if name == "" {
		name = fmt.Sprintf("#%d", t.index)
	}
	return fmt.Sprintf("%s(%s%v)", name, t.Attr.Precision, t.Attr.Dims)
}
