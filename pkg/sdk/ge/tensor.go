// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ge

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
)

// Format of the axes of a tensor.
type Format int

const (
	FormatND Format = iota
	FormatNCHW
	FormatNHWC
)

var formatNames = [...]string{"ND", "NCHW", "NHWC"}

// String implements fmt.Stringer.
func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// TensorDesc describes a tensor: nil Dims means the shape is only known at execution time,
// and -1 marks an unknown dimension.
type TensorDesc struct {
	DType  dtypes.DType
	Dims   []int64
	Format Format
}

// Size returns the number of elements, or -1 if unknown.
func (d TensorDesc) Size() int {
	if d.Dims == nil {
		return -1
	}
	size := 1
	for _, dim := range d.Dims {
		if dim < 0 {
			return -1
		}
		size *= int(dim)
	}
	return size
}

// String implements fmt.Stringer.
func (d TensorDesc) String() string {
	if d.Dims == nil {
		return fmt.Sprintf("(%s)[*]", d.DType)
	}
	return fmt.Sprintf("(%s)%v", d.DType, d.Dims)
}

// Tensor is a descriptor plus its little-endian encoded data.
type Tensor struct {
	Desc TensorDesc
	Data []byte
}

// Attribute names shared by the operators.
const (
	AttrValue = "value"
	AttrIndex = "index"
)

// Operator types known by this package. The graph accepts any type, but only these are evaluated by Execute.
const (
	TypeConst                   = "Const"
	TypeData                    = "Data"
	TypeShape                   = "Shape"
	TypeSlice                   = "Slice"
	TypeStridedSliceV2          = "StridedSliceV2"
	TypeConcatD                 = "ConcatD"
	TypeCast                    = "Cast"
	TypeAdd                     = "Add"
	TypeSub                     = "Sub"
	TypeMul                     = "Mul"
	TypeRealDiv                 = "RealDiv"
	TypeMaximum                 = "Maximum"
	TypeMinimum                 = "Minimum"
	TypeRelu                    = "Relu"
	TypeRelu6                   = "Relu6"
	TypeSigmoid                 = "Sigmoid"
	TypeTanh                    = "Tanh"
	TypeSoftmaxV2               = "SoftmaxV2"
	TypeReshape                 = "Reshape"
	TypeTranspose               = "Transpose"
	TypeMatMulV2                = "MatMulV2"
	TypeBiasAdd                 = "BiasAdd"
	TypeResizeNearestNeighborV2 = "ResizeNearestNeighborV2"
	TypeResizeBilinearV2        = "ResizeBilinearV2"

	// Not evaluated by Execute.
	TypeConv2D            = "Conv2D"
	TypeDepthwiseConv2D   = "DepthwiseConv2D"
	TypeDeformableOffsets = "DeformableOffsets"
	TypeAvgPoolV2         = "AvgPoolV2"
	TypeMaxPoolV3         = "MaxPoolV3"
)

func isValidAttr(value any) bool {
	switch value.(type) {
	case int64, []int64, float32, bool, string, dtypes.DType, Format, Tensor:
		return true
	}
	return false
}

// Float32Tensor creates a FLOAT32 tensor with the given values. If no dims are given it's a vector.
func Float32Tensor(values []float32, dims ...int64) Tensor {
	data := make([]byte, 0, 4*len(values))
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	return Tensor{Desc: TensorDesc{DType: dtypes.Float32, Dims: vectorDims(len(values), dims)}, Data: data}
}

// Int32Tensor creates an INT32 tensor with the given values. If no dims are given it's a vector.
func Int32Tensor(values []int32, dims ...int64) Tensor {
	data := make([]byte, 0, 4*len(values))
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, uint32(v))
	}
	return Tensor{Desc: TensorDesc{DType: dtypes.Int32, Dims: vectorDims(len(values), dims)}, Data: data}
}

func vectorDims(n int, dims []int64) []int64 {
	if dims == nil {
		return []int64{int64(n)}
	}
	return dims
}
