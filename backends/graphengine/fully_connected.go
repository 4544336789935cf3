// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphengine

import (
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/operation"
	"github.com/gomlx/accel/pkg/sdk/ge"
)

// convertFullyConnected flattens the input to [batch, K] and multiplies it by the transposed weight.
func convertFullyConnected(p *Program, op *ir.Operation) error {
	params := operation.ExtractFullyConnected(op)
	backends.CheckFuseCode(params.FuseCode, fuseCodes...)
	x, weight := p.tensorOf(params.Input), p.tensorOf(params.Weight)
	name := p.operatorName(params.Output)

	reshape := p.graph.AddOperator(ge.TypeReshape, name+"/reshape").
		SetInput("x", x).
		SetInput("shape", p.addInt32Constant([]int32{params.BatchSize, params.InputSize}))
	matMulName := name
	if params.Bias != nil {
		matMulName = name + "/matmul"
	}
	matMul := p.graph.AddOperator(ge.TypeMatMulV2, matMulName).
		SetInput("x1", reshape.Output("y")).
		SetInput("x2", weight).
		SetAttr("transpose_x1", false).
		SetAttr("transpose_x2", true)
	result := matMul
	if params.Bias != nil {
		result = p.graph.AddOperator(ge.TypeBiasAdd, name).
			SetInput("x", matMul.Output("y")).
			SetInput("bias", p.tensorOf(params.Bias)).
			SetAttr("data_format", "NCHW")
	}
	p.mapOutput(result, params.Output)
	p.fuseActivation(params.Output, params.FuseCode)
	return nil
}
