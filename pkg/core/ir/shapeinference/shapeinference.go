// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the dimensions resulting from the IR operations and validates their inputs.
//
// It's used by the irbuilder to declare the output operands of the operations it creates, and by the backends to
// plan the dimensions of the intermediary native tensors.
//
// Dimensions follow the IR convention: -1 is an unknown dimension, and it propagates to the outputs that depend
// on it. Spatial operations use the NCHW layout.
package shapeinference

import (
	"slices"

	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/pkg/errors"
)

// Unknown dimension.
const Unknown = -1

// BinaryOp returns the broadcast dimensions of an elementwise binary operation (ADD, SUB, MUL, DIV).
//
// Dimensions are aligned from the right (numpy style), and each pair of dimensions must either match
// or one of them must be 1.
func BinaryOp(opType ir.OpType, lhs, rhs []int32) (output []int32, err error) {
	if !opType.IsElementwiseBinary() {
		err = errors.Errorf("operation %s is not an elementwise binary operation, cannot process it with BinaryOp", opType)
		return
	}
	rank := max(len(lhs), len(rhs))
	output = make([]int32, rank)
	for axis := range rank {
		lhsDim, rhsDim := int32(1), int32(1)
		if ii := axis - (rank - len(lhs)); ii >= 0 {
			lhsDim = lhs[ii]
		}
		if ii := axis - (rank - len(rhs)); ii >= 0 {
			rhsDim = rhs[ii]
		}
		switch {
		case lhsDim == rhsDim:
			output[axis] = lhsDim
		case lhsDim == 1:
			output[axis] = rhsDim
		case rhsDim == 1:
			output[axis] = lhsDim
		case lhsDim == Unknown || rhsDim == Unknown:
			output[axis] = max(lhsDim, rhsDim)
		default:
			err = errors.Errorf("dimension of axis #%d doesn't match and cannot be broadcast for %s, got dimensions %v and %v",
				axis, opType, lhs, rhs)
			return nil, err
		}
	}
	return
}

// ConvConfig holds the spatial parameters of a 2D convolution or pooling, in (height, width) order.
type ConvConfig struct {
	// Paddings in the order top, bottom, left, right.
	Paddings [4]int32

	Strides   [2]int32
	Dilations [2]int32
}

func (c ConvConfig) validate() error {
	for _, p := range c.Paddings {
		if p < 0 {
			return errors.Errorf("invalid negative padding in %v", c.Paddings)
		}
	}
	for ii := range 2 {
		if c.Strides[ii] <= 0 {
			return errors.Errorf("strides must be positive, got %v", c.Strides)
		}
		if c.Dilations[ii] <= 0 {
			return errors.Errorf("dilations must be positive, got %v", c.Dilations)
		}
	}
	return nil
}

// windowOutputDim returns the output dimension of a sliding window over the given (padded) input dimension.
func windowOutputDim(inputDim, padBefore, padAfter, kernel, stride, dilation int32, ceilMode bool) int32 {
	if inputDim == Unknown || kernel == Unknown {
		return Unknown
	}
	effectiveKernel := dilation*(kernel-1) + 1
	span := inputDim + padBefore + padAfter - effectiveKernel
	if span < 0 {
		return 0
	}
	if ceilMode {
		return (span+stride-1)/stride + 1
	}
	return span/stride + 1
}

// Conv2DOp returns the output dimensions of a 2D convolution with NCHW input and filter with dimensions
// [outputChannels, inputChannels/group, kernelHeight, kernelWidth].
func Conv2DOp(input, filter []int32, group int32, config ConvConfig) ([]int32, error) {
	// Convenient error returns.
	errorf := func(format string, args ...any) ([]int32, error) {
		return nil, errors.Errorf("Conv2DOp: "+format, args...)
	}
	if len(input) != 4 {
		return errorf("input must be rank-4 (NCHW), got dimensions %v", input)
	}
	if len(filter) != 4 {
		return errorf("filter must be rank-4 ([out_channels, in_channels/group, kh, kw]), got dimensions %v", filter)
	}
	if group <= 0 {
		return errorf("group must be positive, got %d", group)
	}
	if err := config.validate(); err != nil {
		return errorf("%v", err)
	}
	if input[1] != Unknown && filter[1] != Unknown && input[1] != filter[1]*group {
		return errorf("input channels (%d) must be equal to filter input channels (%d) times group (%d)",
			input[1], filter[1], group)
	}
	if filter[0] != Unknown && filter[0]%group != 0 {
		return errorf("output channels (%d) must be divisible by group (%d)", filter[0], group)
	}
	pads, strides, dilations := config.Paddings, config.Strides, config.Dilations
	return []int32{
		input[0],
		filter[0],
		windowOutputDim(input[2], pads[0], pads[1], filter[2], strides[0], dilations[0], false),
		windowOutputDim(input[3], pads[2], pads[3], filter[3], strides[1], dilations[1], false),
	}, nil
}

// DeformableConv2DOp returns the output dimensions of a deformable 2D convolution, and checks that the
// offset and mask dimensions match the output spatial dimensions.
//
// Offset has 2*deformableGroups*kh*kw channels, and mask has deformableGroups*kh*kw channels.
func DeformableConv2DOp(input, offset, mask, filter []int32, group, deformableGroups int32, config ConvConfig) ([]int32, error) {
	output, err := Conv2DOp(input, filter, group, config)
	if err != nil {
		return nil, errors.WithMessage(err, "DeformableConv2DOp")
	}
	if deformableGroups <= 0 {
		return nil, errors.Errorf("DeformableConv2DOp: deformable groups must be positive, got %d", deformableGroups)
	}
	if len(offset) != 4 || len(mask) != 4 {
		return nil, errors.Errorf("DeformableConv2DOp: offset and mask must be rank-4, got dimensions %v and %v", offset, mask)
	}
	kernelSize := filter[2] * filter[3]
	if filter[2] != Unknown && filter[3] != Unknown {
		if offset[1] != Unknown && offset[1] != 2*deformableGroups*kernelSize {
			return nil, errors.Errorf("DeformableConv2DOp: offset must have 2*deformable_groups*kh*kw=%d channels, got %d",
				2*deformableGroups*kernelSize, offset[1])
		}
		if mask[1] != Unknown && mask[1] != deformableGroups*kernelSize {
			return nil, errors.Errorf("DeformableConv2DOp: mask must have deformable_groups*kh*kw=%d channels, got %d",
				deformableGroups*kernelSize, mask[1])
		}
	}
	for axis := 2; axis < 4; axis++ {
		for _, dims := range [][]int32{offset, mask} {
			if dims[axis] != Unknown && output[axis] != Unknown && dims[axis] != output[axis] {
				return nil, errors.Errorf("DeformableConv2DOp: offset %v and mask %v spatial dimensions must match the output %v",
					offset, mask, output)
			}
		}
	}
	return output, nil
}

// Pool2DOp returns the output dimensions of a 2D pooling with the given kernel (height, width) over an NCHW input.
func Pool2DOp(input []int32, kernel [2]int32, config ConvConfig, ceilMode bool) ([]int32, error) {
	if len(input) != 4 {
		return nil, errors.Errorf("Pool2DOp: input must be rank-4 (NCHW), got dimensions %v", input)
	}
	if kernel[0] <= 0 || kernel[1] <= 0 {
		return nil, errors.Errorf("Pool2DOp: kernel must be positive, got %v", kernel)
	}
	if err := config.validate(); err != nil {
		return nil, errors.WithMessage(err, "Pool2DOp")
	}
	pads, strides := config.Paddings, config.Strides
	return []int32{
		input[0],
		input[1],
		windowOutputDim(input[2], pads[0], pads[1], kernel[0], strides[0], 1, ceilMode),
		windowOutputDim(input[3], pads[2], pads[3], kernel[1], strides[1], 1, ceilMode),
	}, nil
}

// FullyConnectedOp returns the output dimensions [batch, units] of a fully connected layer with weight
// dimensions [units, K]. The input is flattened to [batch, K].
func FullyConnectedOp(input, weight []int32) ([]int32, error) {
	if len(weight) != 2 {
		return nil, errors.Errorf("FullyConnectedOp: weight must be rank-2 ([units, K]), got dimensions %v", weight)
	}
	if len(input) < 2 {
		return nil, errors.Errorf("FullyConnectedOp: input must be at least rank-2, got dimensions %v", input)
	}
	units, k := weight[0], weight[1]
	batch := int32(Unknown)
	if size := product(input); size != Unknown && k > 0 {
		if size%k != 0 {
			return nil, errors.Errorf("FullyConnectedOp: input %v can't be flattened to [batch, %d]", input, k)
		}
		batch = size / k
	}
	return []int32{batch, units}, nil
}

// ConcatOp returns the dimensions of the concatenation of the inputs on the given axis.
// A negative axis counts from the end.
func ConcatOp(inputs [][]int32, axis int) ([]int32, error) {
	if len(inputs) == 0 {
		return nil, errors.Errorf("ConcatOp requires at least one input")
	}
	rank := len(inputs[0])
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, errors.Errorf("invalid concatenation axis %d for inputs with rank %d", axis, rank)
	}
	output := slices.Clone(inputs[0])
	for ii, dims := range inputs[1:] {
		if len(dims) != rank {
			return nil, errors.Errorf("mismatched ranks for ConcatOp: input #0 has rank %d, input #%d has rank %d",
				rank, ii+1, len(dims))
		}
		for d, dim := range dims {
			if d == axis {
				if output[d] == Unknown || dim == Unknown {
					output[d] = Unknown
				} else {
					output[d] += dim
				}
				continue
			}
			if output[d] == Unknown {
				output[d] = dim
			} else if dim != Unknown && dim != output[d] {
				return nil, errors.Errorf("mismatched dimensions for ConcatOp at axis %d (non-concatenation axis): "+
					"input #0 has %d, input #%d has %d", d, output[d], ii+1, dim)
			}
		}
	}
	return output, nil
}

// ReshapeOp returns the output dimensions of a reshape. A 0 in shape copies the input dimension at the same
// axis, and one -1 is inferred from the remaining size.
func ReshapeOp(input, shape []int32) ([]int32, error) {
	output := slices.Clone(shape)
	inferredAxis := -1
	known := int32(1)
	for axis, dim := range output {
		switch {
		case dim == 0:
			if axis >= len(input) {
				return nil, errors.Errorf("ReshapeOp: shape %v copies axis %d, but input only has rank %d", shape, axis, len(input))
			}
			output[axis] = input[axis]
		case dim == Unknown:
			if inferredAxis >= 0 {
				return nil, errors.Errorf("ReshapeOp: shape %v has more than one -1", shape)
			}
			inferredAxis = axis
			continue
		case dim < 0:
			return nil, errors.Errorf("ReshapeOp: invalid dimension %d in shape %v", dim, shape)
		}
		if output[axis] == Unknown {
			known = Unknown
		} else if known != Unknown {
			known *= output[axis]
		}
	}
	size := product(input)
	if inferredAxis >= 0 {
		if size != Unknown && known != Unknown && known > 0 {
			if size%known != 0 {
				return nil, errors.Errorf("ReshapeOp: can't reshape %v to %v", input, shape)
			}
			output[inferredAxis] = size / known
		}
		return output, nil
	}
	if size != Unknown && known != Unknown && size != known {
		return nil, errors.Errorf("ReshapeOp: can't reshape %v to %v, their sizes don't match", input, shape)
	}
	return output, nil
}

// TransposeOp returns the dimensions of the input with the axes permuted: output[ii] = input[perm[ii]].
func TransposeOp(input []int32, perm []int32) ([]int32, error) {
	rank := len(input)
	if len(perm) != rank {
		return nil, errors.Errorf("TransposeOp requires all axes permutations to be defined, input has dimensions %v, "+
			"but %d permutations were given", input, len(perm))
	}
	axesSet := slices.Clone(perm)
	slices.Sort(axesSet)
	for ii, axis := range axesSet {
		if axis != int32(ii) {
			return nil, errors.Errorf("invalid permutation %v given to TransposeOp(%v), each axis must appear exactly once",
				perm, input)
		}
	}
	output := make([]int32, rank)
	for axis, srcAxis := range perm {
		output[axis] = input[srcAxis]
	}
	return output, nil
}

// ResizeOp returns the output dimensions of a resize of an NCHW input: shape holds the output (height, width)
// and scales the (height, width) factors. If both are nil the output spatial dimensions are unknown.
//
// Scaled dimensions are truncated: trunc(H * scale_h).
func ResizeOp(input, shape []int32, scales []float32) ([]int32, error) {
	if len(input) != 4 {
		return nil, errors.Errorf("ResizeOp: input must be rank-4 (NCHW), got dimensions %v", input)
	}
	output := []int32{input[0], input[1], Unknown, Unknown}
	switch {
	case shape != nil:
		if len(shape) != 2 {
			return nil, errors.Errorf("ResizeOp: shape must have 2 values (height, width), got %v", shape)
		}
		copy(output[2:], shape)
	case scales != nil:
		if len(scales) != 2 {
			return nil, errors.Errorf("ResizeOp: scales must have 2 values (height, width), got %v", scales)
		}
		for ii, scale := range scales {
			if scale <= 0 {
				return nil, errors.Errorf("ResizeOp: scales must be positive, got %v", scales)
			}
			if dim := input[2+ii]; dim != Unknown {
				output[2+ii] = int32(float32(dim) * scale)
			}
		}
	}
	return output, nil
}

func product(dims []int32) int32 {
	size := int32(1)
	for _, dim := range dims {
		if dim == Unknown {
			return Unknown
		}
		size *= dim
	}
	return size
}
