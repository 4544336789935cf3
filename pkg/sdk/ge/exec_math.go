// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ge

import (
	"math"

	"github.com/gomlx/exceptions"
)

func init() {
	executors[TypeAdd] = binaryExecutor(func(a, b float64) float64 { return a + b })
	executors[TypeSub] = binaryExecutor(func(a, b float64) float64 { return a - b })
	executors[TypeMul] = binaryExecutor(func(a, b float64) float64 { return a * b })
	executors[TypeRealDiv] = binaryExecutor(func(a, b float64) float64 { return a / b })
	executors[TypeMaximum] = binaryExecutor(math.Max)
	executors[TypeMinimum] = binaryExecutor(math.Min)

	executors[TypeRelu] = unaryExecutor(func(x float64) float64 { return max(x, 0) })
	executors[TypeRelu6] = unaryExecutor(func(x float64) float64 { return min(max(x, 0), 6) })
	executors[TypeSigmoid] = unaryExecutor(func(x float64) float64 { return 1 / (1 + math.Exp(-x)) })
	executors[TypeTanh] = unaryExecutor(math.Tanh)

	executors[TypeSoftmaxV2] = execSoftmaxV2
	executors[TypeMatMulV2] = execMatMulV2
	executors[TypeBiasAdd] = execBiasAdd
}

// broadcastDims returns the numpy-style broadcast of the dimensions.
func broadcastDims(opName string, a, b []int) []int {
	rank := max(len(a), len(b))
	dims := make([]int, rank)
	for axis := range rank {
		da, db := 1, 1
		if ii := axis - (rank - len(a)); ii >= 0 {
			da = a[ii]
		}
		if ii := axis - (rank - len(b)); ii >= 0 {
			db = b[ii]
		}
		switch {
		case da == db || db == 1:
			dims[axis] = da
		case da == 1:
			dims[axis] = db
		default:
			exceptions.Panicf("ge: %q can't broadcast dimensions %v and %v", opName, a, b)
		}
	}
	return dims
}

// broadcastIndex returns a function mapping an index of the broadcast dims to the flat index into v.
func broadcastIndex(v *value, dims []int) func(outIdx []int) int {
	vStrides := strides(v.dims)
	offset := len(dims) - len(v.dims)
	return func(outIdx []int) int {
		flatIdx := 0
		for axis, stride := range vStrides {
			if v.dims[axis] != 1 {
				flatIdx += outIdx[axis+offset] * stride
			}
		}
		return flatIdx
	}
}

// binaryExecutor evaluates x1 <op> x2 with broadcasting. The output has the dtype of x1.
func binaryExecutor(fn func(a, b float64) float64) executor {
	return func(ev *evaluator, op *Operator) *value {
		x1, x2 := ev.input(op, "x1"), ev.input(op, "x2")
		dims := broadcastDims(op.name, x1.dims, x2.dims)
		size := 1
		for _, dim := range dims {
			size *= dim
		}
		out := &value{dtype: x1.dtype, dims: dims, flat: make([]float64, size)}
		idx1, idx2 := broadcastIndex(x1, dims), broadcastIndex(x2, dims)
		outIdx := make([]int, len(dims))
		for flatIdx := range out.flat {
			out.flat[flatIdx] = fn(x1.flat[idx1(outIdx)], x2.flat[idx2(outIdx)])
			for axis := len(dims) - 1; axis >= 0; axis-- {
				outIdx[axis]++
				if outIdx[axis] < dims[axis] {
					break
				}
				outIdx[axis] = 0
			}
		}
		return convert(out, x1.dtype)
	}
}

func unaryExecutor(fn func(x float64) float64) executor {
	return func(ev *evaluator, op *Operator) *value {
		x := ev.input(op, "x")
		out := &value{dtype: x.dtype, dims: x.dims, flat: make([]float64, len(x.flat))}
		for ii, f := range x.flat {
			out.flat[ii] = fn(f)
		}
		return convert(out, x.dtype)
	}
}

// execSoftmaxV2 normalizes over the axes given by the attribute "axes" (default last axis). Only one axis is
// supported.
func execSoftmaxV2(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	axes := attrOr(op, "axes", []int64{-1})
	rank := len(x.dims)
	if len(axes) != 1 {
		exceptions.Panicf("ge: SoftmaxV2 %q supports exactly one axis, got %v", op.name, axes)
	}
	axis := int(axes[0])
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		exceptions.Panicf("ge: SoftmaxV2 %q axis %d out of range for rank %d", op.name, axes[0], rank)
	}
	xStrides := strides(x.dims)
	stride, dim := xStrides[axis], x.dims[axis]
	out := &value{dtype: x.dtype, dims: x.dims, flat: make([]float64, len(x.flat))}
	for start := range x.flat {
		// Only process the first element of each reduced row.
		if (start/stride)%dim != 0 {
			continue
		}
		maxValue := math.Inf(-1)
		for ii := range dim {
			maxValue = max(maxValue, x.flat[start+ii*stride])
		}
		sum := 0.0
		for ii := range dim {
			e := math.Exp(x.flat[start+ii*stride] - maxValue)
			out.flat[start+ii*stride] = e
			sum += e
		}
		for ii := range dim {
			out.flat[start+ii*stride] /= sum
		}
	}
	return convert(out, x.dtype)
}

// execMatMulV2 multiplies two rank-2 tensors, optionally transposed (attributes "transpose_x1", "transpose_x2").
func execMatMulV2(ev *evaluator, op *Operator) *value {
	x1, x2 := ev.input(op, "x1"), ev.input(op, "x2")
	if len(x1.dims) != 2 || len(x2.dims) != 2 {
		exceptions.Panicf("ge: MatMulV2 %q requires rank-2 inputs, got %v and %v", op.name, x1.dims, x2.dims)
	}
	t1, t2 := attrOr(op, "transpose_x1", false), attrOr(op, "transpose_x2", false)
	at := func(v *value, transposed bool, row, col int) float64 {
		if transposed {
			return v.flat[col*v.dims[1]+row]
		}
		return v.flat[row*v.dims[1]+col]
	}
	m, k := x1.dims[0], x1.dims[1]
	if t1 {
		m, k = k, m
	}
	k2, n := x2.dims[0], x2.dims[1]
	if t2 {
		k2, n = n, k2
	}
	if k != k2 {
		exceptions.Panicf("ge: MatMulV2 %q contracting dimensions don't match: %v (transposed=%v) and %v (transposed=%v)",
			op.name, x1.dims, t1, x2.dims, t2)
	}
	out := &value{dtype: x1.dtype, dims: []int{m, n}, flat: make([]float64, m*n)}
	for row := range m {
		for col := range n {
			sum := 0.0
			for ii := range k {
				sum += at(x1, t1, row, ii) * at(x2, t2, ii, col)
			}
			out.flat[row*n+col] = sum
		}
	}
	return convert(out, x1.dtype)
}

// execBiasAdd adds the rank-1 bias on the channels axis: axis 1 for the "NCHW" data_format (the default),
// the last axis otherwise.
func execBiasAdd(ev *evaluator, op *Operator) *value {
	x, bias := ev.input(op, "x"), ev.input(op, "bias")
	rank := len(x.dims)
	axis := rank - 1
	if attrOr(op, "data_format", "NCHW") == "NCHW" && rank >= 2 {
		axis = 1
	}
	if len(bias.dims) != 1 || bias.dims[0] != x.dims[axis] {
		exceptions.Panicf("ge: BiasAdd %q bias dims %v don't match the channels of %v", op.name, bias.dims, x.dims)
	}
	stride := strides(x.dims)[axis]
	out := &value{dtype: x.dtype, dims: x.dims, flat: make([]float64, len(x.flat))}
	for ii, f := range x.flat {
		out.flat[ii] = f + bias.flat[(ii/stride)%x.dims[axis]]
	}
	return convert(out, x.dtype)
}
