// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ge

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

func init() {
	executors[TypeData] = execData
	executors[TypeConst] = execConst
	executors[TypeShape] = execShape
	executors[TypeSlice] = execSlice
	executors[TypeStridedSliceV2] = execStridedSliceV2
	executors[TypeConcatD] = execConcatD
	executors[TypeCast] = execCast
	executors[TypeReshape] = execReshape
	executors[TypeTranspose] = execTranspose
}

func execData(ev *evaluator, op *Operator) *value {
	feed, found := ev.feeds[op.name]
	if !found {
		exceptions.Panicf("ge: no feed for Data operator %q", op.name)
	}
	desc := op.Output("y").Desc
	if feed.Desc.DType != desc.DType {
		exceptions.Panicf("ge: feed for %q has dtype %s, expected %s", op.name, feed.Desc.DType, desc.DType)
	}
	return decode(feed)
}

func execConst(_ *evaluator, op *Operator) *value {
	return decode(attrOr(op, AttrValue, Tensor{}))
}

func execShape(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	out := &value{dtype: attrOr(op, "dtype", dtypes.Int32), dims: []int{len(x.dims)}, flat: make([]float64, len(x.dims))}
	for ii, dim := range x.dims {
		out.flat[ii] = float64(dim)
	}
	return out
}

// strides returns the row-major strides of the dimensions.
func strides(dims []int) []int {
	s := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		s[axis] = stride
		stride *= dims[axis]
	}
	return s
}

// gather builds a value with the given output dims, where each output element is read from x at the
// position given by srcIndex(outputIndices).
func gather(x *value, dims []int, srcIndex func(outIdx []int) []int) *value {
	out := &value{dtype: x.dtype, dims: dims}
	size := 1
	for _, dim := range dims {
		size *= dim
	}
	out.flat = make([]float64, size)
	xStrides := strides(x.dims)
	outIdx := make([]int, len(dims))
	for flatIdx := range out.flat {
		srcIdx := srcIndex(outIdx)
		srcFlat := 0
		for axis, idx := range srcIdx {
			srcFlat += idx * xStrides[axis]
		}
		out.flat[flatIdx] = x.flat[srcFlat]
		// Increment the output multi-dimensional index.
		for axis := len(dims) - 1; axis >= 0; axis-- {
			outIdx[axis]++
			if outIdx[axis] < dims[axis] {
				break
			}
			outIdx[axis] = 0
		}
	}
	return out
}

// execSlice takes a contiguous block of x: offsets and size have one value per axis, and a size of -1 takes
// everything until the end of the axis.
func execSlice(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	offsets := ev.input(op, "offsets").ints()
	size := ev.input(op, "size").ints()
	rank := len(x.dims)
	if len(offsets) != rank || len(size) != rank {
		exceptions.Panicf("ge: Slice %q requires offsets and size with one value per axis (rank %d), got %v and %v",
			op.name, rank, offsets, size)
	}
	dims := make([]int, rank)
	for axis := range rank {
		dims[axis] = size[axis]
		if dims[axis] < 0 {
			dims[axis] = x.dims[axis] - offsets[axis]
		}
		if offsets[axis] < 0 || offsets[axis]+dims[axis] > x.dims[axis] {
			exceptions.Panicf("ge: Slice %q out of bounds: offsets=%v size=%v for dims %v", op.name, offsets, size, x.dims)
		}
	}
	srcIdx := make([]int, rank)
	return gather(x, dims, func(outIdx []int) []int {
		for axis, idx := range outIdx {
			srcIdx[axis] = idx + offsets[axis]
		}
		return srcIdx
	})
}

// broadcastList returns values with n elements: either values itself, or its single value repeated.
func broadcastList(values []int, n int, what, opName string) []int {
	if len(values) == n {
		return values
	}
	if len(values) == 1 {
		return slices.Repeat(values, n)
	}
	exceptions.Panicf("ge: %s of %q has %d values, expected 1 or %d", what, opName, len(values), n)
	return nil
}

// execStridedSliceV2 slices the given axes (default all, in order) from begin (inclusive) to end (exclusive)
// with the given strides (default 1). Negative begin/end count from the end, and end is clamped to the dimension.
func execStridedSliceV2(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	begin := ev.input(op, "begin").ints()
	end := ev.input(op, "end").ints()
	rank := len(x.dims)
	n := len(begin)
	if len(end) != n {
		exceptions.Panicf("ge: StridedSliceV2 %q begin %v and end %v have different lengths", op.name, begin, end)
	}
	axes := make([]int, n)
	for ii := range axes {
		axes[ii] = ii
	}
	if v := ev.optionalInput(op, "axes"); v != nil {
		axes = broadcastList(v.ints(), n, "axes", op.name)
	}
	steps := slices.Repeat([]int{1}, n)
	if v := ev.optionalInput(op, "strides"); v != nil {
		steps = broadcastList(v.ints(), n, "strides", op.name)
	}

	starts := make([]int, rank)
	stepPerAxis := slices.Repeat([]int{1}, rank)
	dims := slices.Clone(x.dims)
	for ii, axis := range axes {
		if axis < 0 {
			axis += rank
		}
		if axis < 0 || axis >= rank {
			exceptions.Panicf("ge: StridedSliceV2 %q axis %d out of range for rank %d", op.name, axes[ii], rank)
		}
		if steps[ii] <= 0 {
			exceptions.Panicf("ge: StridedSliceV2 %q only supports positive strides, got %v", op.name, steps)
		}
		dim := x.dims[axis]
		b, e := begin[ii], end[ii]
		if b < 0 {
			b += dim
		}
		if e < 0 {
			e += dim
		}
		b = min(max(b, 0), dim)
		e = min(max(e, 0), dim)
		starts[axis] = b
		stepPerAxis[axis] = steps[ii]
		dims[axis] = 0
		if e > b {
			dims[axis] = (e - b + steps[ii] - 1) / steps[ii]
		}
	}
	srcIdx := make([]int, rank)
	return gather(x, dims, func(outIdx []int) []int {
		for axis, idx := range outIdx {
			srcIdx[axis] = starts[axis] + idx*stepPerAxis[axis]
		}
		return srcIdx
	})
}

// execConcatD concatenates the dynamic inputs "x" on the axis given by the attribute "concat_dim".
func execConcatD(ev *evaluator, op *Operator) *value {
	sources := op.DynamicInputs("x")
	if len(sources) == 0 {
		exceptions.Panicf("ge: ConcatD %q has no inputs", op.name)
	}
	if n := attrOr(op, "N", int64(len(sources))); int(n) != len(sources) {
		exceptions.Panicf("ge: ConcatD %q attribute N=%d doesn't match its %d inputs", op.name, n, len(sources))
	}
	inputs := make([]*value, len(sources))
	for ii, src := range sources {
		if src == nil {
			exceptions.Panicf("ge: ConcatD %q input x%d is not connected", op.name, ii)
		}
		inputs[ii] = ev.eval(src)
	}
	rank := len(inputs[0].dims)
	axis := int(attrOr(op, "concat_dim", int64(0)))
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		exceptions.Panicf("ge: ConcatD %q axis %d out of range for rank %d", op.name, axis, rank)
	}
	dims := slices.Clone(inputs[0].dims)
	dims[axis] = 0
	for ii, in := range inputs {
		if len(in.dims) != rank {
			exceptions.Panicf("ge: ConcatD %q input x%d has rank %d, expected %d", op.name, ii, len(in.dims), rank)
		}
		for d := range rank {
			if d != axis && in.dims[d] != inputs[0].dims[d] {
				exceptions.Panicf("ge: ConcatD %q input x%d has dims %v, incompatible with %v", op.name, ii, in.dims, inputs[0].dims)
			}
		}
		dims[axis] += in.dims[axis]
	}

	// Copy blocks: outer is the product of dims before axis, and each input contributes dims[axis]*inner values
	// per outer index.
	outer := 1
	for _, dim := range dims[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range dims[axis+1:] {
		inner *= dim
	}
	out := &value{dtype: inputs[0].dtype, dims: dims, flat: make([]float64, 0, outer*dims[axis]*inner)}
	for o := range outer {
		for _, in := range inputs {
			block := in.dims[axis] * inner
			out.flat = append(out.flat, in.flat[o*block:(o+1)*block]...)
		}
	}
	return out
}

func execCast(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	dstType := attrOr(op, "dst_type", dtypes.InvalidDType)
	if dstType == dtypes.InvalidDType {
		exceptions.Panicf("ge: Cast %q requires the attribute dst_type", op.name)
	}
	return convert(x, dstType)
}

// execReshape reshapes x to the values of the "shape" input: 0 copies the input dimension, and one -1 is
// inferred.
func execReshape(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	shape := ev.input(op, "shape").ints()
	dims := slices.Clone(shape)
	inferred, known := -1, 1
	for axis, dim := range dims {
		switch {
		case dim == 0 && axis < len(x.dims):
			dims[axis] = x.dims[axis]
		case dim == -1 && inferred < 0:
			inferred = axis
			continue
		case dim < 0:
			exceptions.Panicf("ge: Reshape %q invalid shape %v", op.name, shape)
		}
		known *= dims[axis]
	}
	if inferred >= 0 {
		if known == 0 || x.size()%known != 0 {
			exceptions.Panicf("ge: Reshape %q can't reshape %v to %v", op.name, x.dims, shape)
		}
		dims[inferred] = x.size() / known
		known *= dims[inferred]
	}
	if known != x.size() {
		exceptions.Panicf("ge: Reshape %q can't reshape %v to %v", op.name, x.dims, shape)
	}
	return &value{dtype: x.dtype, dims: dims, flat: x.flat}
}

func execTranspose(ev *evaluator, op *Operator) *value {
	x := ev.input(op, "x")
	perm := ev.input(op, "perm").ints()
	rank := len(x.dims)
	if len(perm) != rank {
		exceptions.Panicf("ge: Transpose %q permutation %v doesn't match rank %d", op.name, perm, rank)
	}
	dims := make([]int, rank)
	for axis, src := range perm {
		if src < 0 || src >= rank {
			exceptions.Panicf("ge: Transpose %q invalid permutation %v", op.name, perm)
		}
		dims[axis] = x.dims[src]
	}
	srcIdx := make([]int, rank)
	return gather(x, dims, func(outIdx []int) []int {
		for axis, idx := range outIdx {
			srcIdx[perm[axis]] = idx
		}
		return srcIdx
	})
}

// floorClamp returns floor(f) clamped to [0, limit-1].
func floorClamp(f float64, limit int) int {
	return min(max(int(math.Floor(f)), 0), limit-1)
}
