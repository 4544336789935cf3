// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/accel/pkg/core/ir/irbuilder"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"
)

// modelFile is the YAML description of a model. Operations refer to operands by name, and their outputs
// are created with the dimensions inferred from the inputs.
type modelFile struct {
	Name       string          `yaml:"name"`
	Inputs     []operandSpec   `yaml:"inputs"`
	Constants  []constantSpec  `yaml:"constants"`
	Operations []operationSpec `yaml:"operations"`
	Outputs    []string        `yaml:"outputs"`
}

type quantSpec struct {
	Scales     []float32 `yaml:"scales"`
	ZeroPoint  int32     `yaml:"zero_point"`
	ChannelDim int       `yaml:"channel_dim"`
}

type operandSpec struct {
	Name      string       `yaml:"name"`
	Precision ir.Precision `yaml:"precision"`
	Dims      []int32      `yaml:"dims"`
	Layout    ir.Layout    `yaml:"layout"`
	Quant     *quantSpec   `yaml:"quant"`
}

// constantSpec holds either the values, or a fill value repeated for all elements.
type constantSpec struct {
	operandSpec `yaml:",inline"`
	Values      []float64 `yaml:"values"`
	Fill        *float64  `yaml:"fill"`
}

// operationSpec of one operation. An empty (or null) input is an absent optional operand, e.g. the bias.
type operationSpec struct {
	Type   ir.OpType `yaml:"type"`
	Inputs []string  `yaml:"inputs"`
	Output string    `yaml:"output"`
	Attrs  attrsSpec `yaml:"attrs"`
}

// attrsSpec are the attributes of all operation types. Spatial pairs are given in (height, width) order, and
// paddings as (top, bottom, left, right).
type attrsSpec struct {
	Fuse             ir.FuseCode `yaml:"fuse"`
	Axis             *int32      `yaml:"axis"`
	Paddings         []int32     `yaml:"paddings"`
	Strides          []int32     `yaml:"strides"`
	Dilations        []int32     `yaml:"dilations"`
	Group            int32       `yaml:"group"`
	DeformableGroups int32       `yaml:"deformable_groups"`
	Window           []int32     `yaml:"window"`
	CeilMode         bool        `yaml:"ceil_mode"`
	CountIncludePad  bool        `yaml:"count_include_pad"`
	Shape            []int32     `yaml:"shape"`
	Scales           []float32   `yaml:"scales"`
	Perm             []int32     `yaml:"perm"`
	AlignCorners     bool        `yaml:"align_corners"`
	AlignMode        *int32      `yaml:"align_mode"`
}

// loadModelFile reads and builds the model described in the YAML file.
func loadModelFile(path string) (*ir.Model, string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "reading model file")
	}
	return parseModel(contents)
}

// parseModel builds the model described in YAML. It returns the model and its name.
func parseModel(contents []byte) (model *ir.Model, name string, err error) {
	var spec modelFile
	if err = yaml.Unmarshal(contents, &spec); err != nil {
		return nil, "", errors.Wrapf(err, "parsing model")
	}
	l := &loader{b: irbuilder.New(), operands: make(map[string]*ir.Operand)}
	var buildErr error
	err = exceptions.TryCatch[error](func() { buildErr = l.build(&spec) })
	if err == nil {
		err = buildErr
	}
	if err != nil {
		return nil, "", errors.WithMessagef(err, "building model %q", spec.Name)
	}
	model = l.b.Model()
	if err = model.Validate(); err != nil {
		return nil, "", err
	}
	return model, spec.Name, nil
}

type loader struct {
	b        *irbuilder.Builder
	operands map[string]*ir.Operand
}

func (l *loader) define(name string, operand *ir.Operand) error {
	if name == "" {
		return errors.Errorf("operand without a name")
	}
	if _, found := l.operands[name]; found {
		return errors.Errorf("operand %q defined more than once", name)
	}
	l.operands[name] = operand
	return nil
}

func (l *loader) operand(name string) (*ir.Operand, error) {
	if name == "" {
		return nil, nil
	}
	operand, found := l.operands[name]
	if !found {
		return nil, errors.Errorf("unknown operand %q", name)
	}
	return operand, nil
}

func (l *loader) build(spec *modelFile) error {
	for _, input := range spec.Inputs {
		t, err := input.operandType()
		if err != nil {
			return err
		}
		operand := l.b.Input(t.Precision, t.Dimensions...)
		operand.Type.Layout, operand.Type.Quant = t.Layout, t.Quant
		if err := l.define(input.Name, operand); err != nil {
			return err
		}
	}
	for _, constant := range spec.Constants {
		t, err := constant.operandType()
		if err != nil {
			return err
		}
		buffer, err := constant.encode(t)
		if err != nil {
			return err
		}
		if err := l.define(constant.Name, l.b.Model().AddConstant(t, buffer, false)); err != nil {
			return err
		}
	}
	for ii, opSpec := range spec.Operations {
		output, err := l.addOperation(&opSpec)
		if err != nil {
			return errors.WithMessagef(err, "operation #%d (%s)", ii, opSpec.Type)
		}
		if err := l.define(opSpec.Output, output); err != nil {
			return errors.WithMessagef(err, "operation #%d (%s)", ii, opSpec.Type)
		}
	}
	if len(spec.Outputs) == 0 {
		return errors.Errorf("model has no outputs")
	}
	outputs := make([]*ir.Operand, 0, len(spec.Outputs))
	for _, name := range spec.Outputs {
		output, err := l.operand(name)
		if err != nil {
			return err
		}
		if output == nil {
			return errors.Errorf("empty output name")
		}
		outputs = append(outputs, output)
	}
	l.b.Outputs(outputs...)
	return nil
}

func (s *operandSpec) operandType() (t ir.OperandType, err error) {
	if s.Precision == ir.PrecisionInvalid || s.Precision == ir.PrecisionLast {
		return t, errors.Errorf("operand %q requires a valid precision, got %s", s.Name, s.Precision)
	}
	if s.Layout == ir.LayoutLast {
		return t, errors.Errorf("operand %q has an invalid layout %s", s.Name, s.Layout)
	}
	t.Precision, t.Layout, t.Dimensions = s.Precision, s.Layout, s.Dims
	if s.Quant != nil {
		t.Quant = &ir.Quantization{Scales: s.Quant.Scales, ZeroPoint: s.Quant.ZeroPoint, ChannelDim: s.Quant.ChannelDim}
	}
	return t, nil
}

// encode the values of the constant in the little-endian layout of its precision.
func (s *constantSpec) encode(t ir.OperandType) ([]byte, error) {
	size := t.Size()
	if size < 0 {
		return nil, errors.Errorf("constant %q with unknown dimensions %v", s.Name, t.Dimensions)
	}
	values := s.Values
	switch {
	case s.Fill != nil && values != nil:
		return nil, errors.Errorf("constant %q has both values and fill", s.Name)
	case s.Fill != nil:
		values = make([]float64, size)
		for ii := range values {
			values[ii] = *s.Fill
		}
	case len(values) != size:
		return nil, errors.Errorf("constant %q with dimensions %v requires %d values, got %d",
			s.Name, t.Dimensions, size, len(values))
	}
	switch dtype := t.Precision.DType(); dtype {
	case dtypes.Float32:
		return backends.EncodeFlat(convertValues[float32](values)), nil
	case dtypes.Float64:
		return backends.EncodeFlat(values), nil
	case dtypes.Float16:
		bits := make([]uint16, len(values))
		for ii, v := range values {
			bits[ii] = float16.Fromfloat32(float32(v)).Bits()
		}
		return backends.EncodeFlat(bits), nil
	case dtypes.Int8:
		return backends.EncodeFlat(convertValues[int8](values)), nil
	case dtypes.Uint8:
		return backends.EncodeFlat(convertValues[uint8](values)), nil
	case dtypes.Int16:
		return backends.EncodeFlat(convertValues[int16](values)), nil
	case dtypes.Uint16:
		return backends.EncodeFlat(convertValues[uint16](values)), nil
	case dtypes.Int32:
		return backends.EncodeFlat(convertValues[int32](values)), nil
	case dtypes.Uint32:
		return backends.EncodeFlat(convertValues[uint32](values)), nil
	case dtypes.Int64:
		return backends.EncodeFlat(convertValues[int64](values)), nil
	case dtypes.Uint64:
		return backends.EncodeFlat(convertValues[uint64](values)), nil
	case dtypes.Bool:
		buffer := make([]byte, len(values))
		for ii, v := range values {
			if v != 0 {
				buffer[ii] = 1
			}
		}
		return buffer, nil
	default:
		return nil, errors.Errorf("constant %q with unsupported precision %s", s.Name, t.Precision)
	}
}

func convertValues[T constraints.Integer | constraints.Float](values []float64) []T {
	converted := make([]T, len(values))
	for ii, v := range values {
		converted[ii] = T(v)
	}
	return converted
}

// pair returns the two values of a spatial attribute, or defaultValue if it's not set.
func pair[T any](name string, values []T, defaultValue [2]T) ([2]T, error) {
	switch len(values) {
	case 0:
		return defaultValue, nil
	case 2:
		return [2]T{values[0], values[1]}, nil
	default:
		return defaultValue, errors.Errorf("attribute %q requires 2 values, got %v", name, values)
	}
}

func (a *attrsSpec) fuseCode() (ir.FuseCode, error) {
	if a.Fuse < ir.FuseNone || a.Fuse >= ir.FuseLast {
		return a.Fuse, errors.Errorf("invalid fuse code %s", a.Fuse)
	}
	return a.Fuse, nil
}

func (a *attrsSpec) paddings() ([4]int32, error) {
	switch len(a.Paddings) {
	case 0:
		return [4]int32{}, nil
	case 4:
		return [4]int32(a.Paddings), nil
	default:
		return [4]int32{}, errors.Errorf("attribute \"paddings\" requires 4 values (top, bottom, left, right), got %v",
			a.Paddings)
	}
}

// addOperation adds the operation using the irbuilder, which infers the dimensions of the output.
func (l *loader) addOperation(spec *operationSpec) (*ir.Operand, error) {
	opType := spec.Type
	if !opType.IsValid() {
		return nil, errors.Errorf("invalid operation type %s", opType)
	}
	var err error
	inputs := make([]*ir.Operand, len(spec.Inputs))
	for ii, name := range spec.Inputs {
		if inputs[ii], err = l.operand(name); err != nil {
			return nil, err
		}
	}
	// input returns the ii-th input, which is required unless optional.
	input := func(ii int, optional bool) (*ir.Operand, error) {
		if ii >= len(inputs) || inputs[ii] == nil {
			if optional {
				return nil, nil
			}
			return nil, errors.Errorf("missing input #%d", ii)
		}
		return inputs[ii], nil
	}
	numInputs := map[ir.OpType]int{
		ir.OpTypeAdd: 2, ir.OpTypeSub: 2, ir.OpTypeMul: 2, ir.OpTypeDiv: 2,
		ir.OpTypeConv2D: 3, ir.OpTypeDeformableConv2D: 5, ir.OpTypeFullyConnected: 3,
	}
	maxInputs, found := numInputs[opType]
	if !found && opType != ir.OpTypeConcat {
		maxInputs = 1
	}
	if opType != ir.OpTypeConcat && len(inputs) > maxInputs {
		return nil, errors.Errorf("%s takes at most %d inputs, got %d", opType, maxInputs, len(inputs))
	}
	x, err := input(0, false)
	if err != nil {
		return nil, err
	}
	attrs := &spec.Attrs
	fuse, err := attrs.fuseCode()
	if err != nil {
		return nil, err
	}
	b := l.b

	switch opType {
	case ir.OpTypeAdd, ir.OpTypeSub, ir.OpTypeMul, ir.OpTypeDiv:
		y, err := input(1, false)
		if err != nil {
			return nil, err
		}
		binaryOps := map[ir.OpType]func(x, y *ir.Operand, fuse ir.FuseCode) *ir.Operand{
			ir.OpTypeAdd: b.Add, ir.OpTypeSub: b.Sub, ir.OpTypeMul: b.Mul, ir.OpTypeDiv: b.Div,
		}
		return binaryOps[opType](x, y, fuse), nil

	case ir.OpTypeRelu:
		return b.Relu(x), nil
	case ir.OpTypeRelu6:
		return b.Relu6(x), nil
	case ir.OpTypeSigmoid:
		return b.Sigmoid(x), nil
	case ir.OpTypeTanh:
		return b.Tanh(x), nil

	case ir.OpTypeSoftmax:
		axis := int32(-1)
		if attrs.Axis != nil {
			axis = *attrs.Axis
		}
		return b.Softmax(x, axis), nil

	case ir.OpTypeConv2D, ir.OpTypeDeformableConv2D:
		return l.addConvolution(opType, input, attrs, fuse)

	case ir.OpTypeFullyConnected:
		weight, err := input(1, false)
		if err != nil {
			return nil, err
		}
		bias, _ := input(2, true)
		return b.FullyConnected(x, weight, bias, fuse), nil

	case ir.OpTypeAveragePool2D, ir.OpTypeMaxPool2D:
		window, err := pair("window", attrs.Window, [2]int32{})
		if err != nil {
			return nil, err
		}
		if len(attrs.Window) == 0 {
			return nil, errors.Errorf("attribute \"window\" is required")
		}
		pool := b.MaxPool2D(x, window[0], window[1])
		if opType == ir.OpTypeAveragePool2D {
			pool = b.AveragePool2D(x, window[0], window[1])
		}
		paddings, err := attrs.paddings()
		if err != nil {
			return nil, err
		}
		strides, err := pair("strides", attrs.Strides, window)
		if err != nil {
			return nil, err
		}
		return pool.Paddings(paddings[0], paddings[1], paddings[2], paddings[3]).
			StridePerDim(strides[0], strides[1]).
			CeilMode(attrs.CeilMode).
			CountIncludePad(attrs.CountIncludePad).
			Fuse(fuse).Done(), nil

	case ir.OpTypeConcat:
		for ii, operand := range inputs {
			if operand == nil {
				return nil, errors.Errorf("missing input #%d", ii)
			}
		}
		if attrs.Axis == nil {
			return nil, errors.Errorf("attribute \"axis\" is required")
		}
		return b.Concat(*attrs.Axis, inputs...), nil

	case ir.OpTypeReshape:
		if len(attrs.Shape) == 0 {
			return nil, errors.Errorf("attribute \"shape\" is required")
		}
		return b.Reshape(x, attrs.Shape...), nil

	case ir.OpTypeTranspose:
		return b.Transpose(x, attrs.Perm...), nil

	case ir.OpTypeResizeNearest, ir.OpTypeResizeLinear:
		resize := b.ResizeNearest(x)
		if opType == ir.OpTypeResizeLinear {
			resize = b.ResizeLinear(x)
		}
		if len(attrs.Shape) > 0 {
			shape, err := pair("shape", attrs.Shape, [2]int32{})
			if err != nil {
				return nil, err
			}
			resize.Shape(shape[0], shape[1])
		}
		if len(attrs.Scales) > 0 {
			scales, err := pair("scales", attrs.Scales, [2]float32{})
			if err != nil {
				return nil, err
			}
			resize.Scales(scales[0], scales[1])
		}
		resize.AlignCorners(attrs.AlignCorners)
		if attrs.AlignMode != nil {
			resize.AlignMode(*attrs.AlignMode)
		}
		return resize.Done(), nil
	}
	return nil, errors.Errorf("operation type %s not supported in model files", opType)
}

func (l *loader) addConvolution(opType ir.OpType, input func(int, bool) (*ir.Operand, error), attrs *attrsSpec,
	fuse ir.FuseCode) (*ir.Operand, error) {
	var operands [5]*ir.Operand
	required := 2
	if opType == ir.OpTypeDeformableConv2D {
		required = 4
	}
	for ii := range required + 1 {
		var err error
		if operands[ii], err = input(ii, ii == required); err != nil {
			return nil, err
		}
	}
	var conv *irbuilder.ConvolutionBuilder
	if opType == ir.OpTypeDeformableConv2D {
		conv = l.b.DeformableConv2D(operands[0], operands[1], operands[2], operands[3], operands[4])
		if attrs.DeformableGroups > 0 {
			conv.DeformableGroups(attrs.DeformableGroups)
		}
	} else {
		conv = l.b.Conv2D(operands[0], operands[1], operands[2])
	}
	paddings, err := attrs.paddings()
	if err != nil {
		return nil, err
	}
	strides, err := pair("strides", attrs.Strides, [2]int32{1, 1})
	if err != nil {
		return nil, err
	}
	dilations, err := pair("dilations", attrs.Dilations, [2]int32{1, 1})
	if err != nil {
		return nil, err
	}
	if attrs.Group > 0 {
		conv.Group(attrs.Group)
	}
	return conv.Paddings(paddings[0], paddings[1], paddings[2], paddings[3]).
		StridePerDim(strides[0], strides[1]).
		DilationPerDim(dilations[0], dilations[1]).
		Fuse(fuse).Done(), nil
}
