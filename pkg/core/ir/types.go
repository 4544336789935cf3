// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/gomlx/gopjrt/dtypes"
)

// Precision of the elements of an Operand, including the quantized variations.
type Precision int

//go:generate go tool enumer -type=Precision -trimprefix=Precision -linecomment -values -text -json -yaml -output=gen_precision_enumer.go types.go

const (
	PrecisionInvalid Precision = iota // INVALID
	PrecisionBool8                    // BOOL8
	PrecisionInt8                     // INT8
	PrecisionUint8                    // UINT8
	PrecisionInt16                    // INT16
	PrecisionUint16                   // UINT16
	PrecisionInt32                    // INT32
	PrecisionUint32                   // UINT32
	PrecisionInt64                    // INT64
	PrecisionUint64                   // UINT64
	PrecisionFloat16                  // FLOAT16
	PrecisionFloat32                  // FLOAT32
	PrecisionFloat64                  // FLOAT64

	// PrecisionQuantInt8SymmPerLayer is int8 with one scale and zero point 0.
	PrecisionQuantInt8SymmPerLayer // QUANT_INT8_SYMM_PER_LAYER

	// PrecisionQuantInt8SymmPerChannel is int8 with one scale per channel (Quantization.ChannelDim).
	PrecisionQuantInt8SymmPerChannel // QUANT_INT8_SYMM_PER_CHANNEL

	// PrecisionQuantUint8AsymmPerLayer is uint8 with one scale and one zero point.
	PrecisionQuantUint8AsymmPerLayer // QUANT_UINT8_ASYMM_PER_LAYER

	// PrecisionQuantInt32SymmPerLayer is typically used for the bias of quantized convolutions.
	PrecisionQuantInt32SymmPerLayer // QUANT_INT32_SYMM_PER_LAYER

	// PrecisionQuantInt32SymmPerChannel is the per-channel version of PrecisionQuantInt32SymmPerLayer.
	PrecisionQuantInt32SymmPerChannel // QUANT_INT32_SYMM_PER_CHANNEL

	// PrecisionLast is kept as the last, it's used as a counter/marker for Precision.
	PrecisionLast
)

// DType returns the storage data type of one element with this precision.
// Quantized precisions return the underlying integer type.
func (p Precision) DType() dtypes.DType {
	switch p {
	case PrecisionBool8:
		return dtypes.Bool
	case PrecisionInt8, PrecisionQuantInt8SymmPerLayer, PrecisionQuantInt8SymmPerChannel:
		return dtypes.Int8
	case PrecisionUint8, PrecisionQuantUint8AsymmPerLayer:
		return dtypes.Uint8
	case PrecisionInt16:
		return dtypes.Int16
	case PrecisionUint16:
		return dtypes.Uint16
	case PrecisionInt32, PrecisionQuantInt32SymmPerLayer, PrecisionQuantInt32SymmPerChannel:
		return dtypes.Int32
	case PrecisionUint32:
		return dtypes.Uint32
	case PrecisionInt64:
		return dtypes.Int64
	case PrecisionUint64:
		return dtypes.Uint64
	case PrecisionFloat16:
		return dtypes.Float16
	case PrecisionFloat32:
		return dtypes.Float32
	case PrecisionFloat64:
		return dtypes.Float64
	default:
		return dtypes.InvalidDType
	}
}

// IsQuantized returns whether the precision carries quantization parameters.
func (p Precision) IsQuantized() bool {
	return p >= PrecisionQuantInt8SymmPerLayer && p <= PrecisionQuantInt32SymmPerChannel
}

// IsPerChannel returns whether the precision is quantized with one scale per channel.
func (p Precision) IsPerChannel() bool {
	return p == PrecisionQuantInt8SymmPerChannel || p == PrecisionQuantInt32SymmPerChannel
}

// Layout of the axes of an Operand.
type Layout int

//go:generate go tool enumer -type=Layout -trimprefix=Layout -linecomment -values -text -json -yaml -output=gen_layout_enumer.go types.go

const (
	LayoutNCHW Layout = iota // NCHW
	LayoutNHWC               // NHWC

	// LayoutLast is kept as the last, it's used as a counter/marker for Layout.
	LayoutLast
)

// Lifetime of an Operand.
type Lifetime int

//go:generate go tool enumer -type=Lifetime -trimprefix=Lifetime -linecomment -values -text -json -yaml -output=gen_lifetime_enumer.go types.go

const (
	// LifetimeTemporaryVariable is produced and consumed by operations of the model.
	LifetimeTemporaryVariable Lifetime = iota // TEMPORARY_VARIABLE

	// LifetimeConstantCopy is a constant whose buffer is owned by the Model.
	LifetimeConstantCopy // CONSTANT_COPY

	// LifetimeConstantReference is a constant whose buffer is owned by the caller and referenced by the Model.
	LifetimeConstantReference // CONSTANT_REFERENCE

	// LifetimeModelInput is fed at execution time.
	LifetimeModelInput // MODEL_INPUT

	// LifetimeModelOutput is returned at execution time.
	LifetimeModelOutput // MODEL_OUTPUT

	// LifetimeLast is kept as the last, it's used as a counter/marker for Lifetime.
	LifetimeLast
)

// IsConstant returns whether the lifetime is one of the constant ones.
func (l Lifetime) IsConstant() bool {
	return l == LifetimeConstantCopy || l == LifetimeConstantReference
}

// FuseCode selects the activation fused at the end of an operation.
type FuseCode int

//go:generate go tool enumer -type=FuseCode -trimprefix=Fuse -linecomment -values -text -json -yaml -output=gen_fusecode_enumer.go types.go

const (
	FuseNone  FuseCode = iota // NONE
	FuseRelu                  // RELU
	FuseRelu1                 // RELU1
	FuseRelu6                 // RELU6

	// FuseLast is kept as the last, it's used as a counter/marker for FuseCode.
	FuseLast
)
