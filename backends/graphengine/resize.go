// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphengine

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/operation"
	"github.com/gomlx/accel/pkg/sdk/ge"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// convertResize lowers RESIZE_NEAREST and RESIZE_LINEAR. The output size is the shape operand if given,
// otherwise it's computed in the graph as int32(float(input spatial dims) * scales).
func convertResize(p *Program, op *ir.Operation) error {
	params := operation.ExtractResize(op)
	if params.Shape == nil && params.Scales == nil {
		klog.Warningf("ge: %s requires either the shape or the scales operand", ir.OperationToString(op))
		return errors.Wrapf(backends.ErrInvalidParameter, "%s without shape nor scales", params.Type)
	}
	x := p.tensorOf(params.Input)
	name := p.operatorName(params.Output)
	var size *ge.Output
	if params.Shape != nil {
		size = p.tensorOf(params.Shape)
	} else {
		size = p.scaledSize(name, x, p.tensorOf(params.Scales))
	}

	opType := ge.TypeResizeNearestNeighborV2
	halfPixelCenters := false
	if params.Type == ir.OpTypeResizeLinear {
		opType = ge.TypeResizeBilinearV2
		halfPixelCenters = !params.AlignCorners && params.AlignMode == 0
	}
	resize := p.graph.AddOperator(opType, name).
		SetInput("x", x).
		SetInput("size", size).
		SetAttr("align_corners", params.AlignCorners).
		SetAttr("half_pixel_centers", halfPixelCenters)
	p.mapOutput(resize, params.Output)
	return nil
}

// scaledSize builds Shape -> Slice -> Cast -> Mul -> Cast, returning the int32[2] output (height, width).
// The intermediates are named after the resize operator.
func (p *Program) scaledSize(name string, x, scales *ge.Output) *ge.Output {
	shape := p.graph.AddOperator(ge.TypeShape, name+"/shape").
		SetInput("x", x).
		SetAttr("dtype", dtypes.Int32)
	slice := p.graph.AddOperator(ge.TypeSlice, name+"/slice").
		SetInput("x", shape.Output("y")).
		SetInput("offsets", p.addInt32Constant([]int32{2})).
		SetInput("size", p.addInt32Constant([]int32{2}))
	sliceCast := p.graph.AddOperator(ge.TypeCast, name+"/slice_cast").
		SetInput("x", slice.Output("y")).
		SetAttr("dst_type", dtypes.Float32)
	mul := p.graph.AddOperator(ge.TypeMul, name+"/mul").
		SetInput("x1", sliceCast.Output("y")).
		SetInput("x2", scales)
	mulCast := p.graph.AddOperator(ge.TypeCast, name+"/mul_cast").
		SetInput("x", mul.Output("y")).
		SetAttr("dst_type", dtypes.Int32)
	return mulCast.UpdateOutputDesc("y", ge.TensorDesc{DType: dtypes.Int32, Dims: []int64{2}})
}
