// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ge

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"
)

// ErrNotExecutable is returned by Execute when the graph includes operators it can't evaluate.
var ErrNotExecutable = errors.New("operator not supported by the reference executor")

// value is the host representation of a tensor during the evaluation: values are kept as float64, which
// is exact for all the integer types used for shapes and indices.
type value struct {
	dtype dtypes.DType
	dims  []int
	flat  []float64
}

func (v *value) size() int {
	return len(v.flat)
}

// executor evaluates one operator.
type executor func(ev *evaluator, op *Operator) *value

// executors maps the operator types to their executors, it's populated at init time.
var executors = make(map[string]executor)

// Execute evaluates the fetched outputs of the graph, feeding the Data operators by name.
//
// Only the operators needed by the fetched outputs are evaluated. If no fetches are given, the graph outputs
// (see Graph.SetOutputs) are used.
//
// It returns an error wrapping ErrNotExecutable if an operator can't be evaluated on the host
// (e.g. Conv2D), or any other error if the graph is malformed.
func Execute(g *Graph, feeds map[string]Tensor, fetches ...*Output) (results []Tensor, err error) {
	if len(fetches) == 0 {
		fetches = g.outputs
	}
	ev := &evaluator{graph: g, feeds: feeds, values: make(map[*Output]*value)}
	err = exceptions.TryCatch[error](func() {
		results = make([]Tensor, len(fetches))
		for ii, fetch := range fetches {
			results[ii] = encode(ev.eval(fetch))
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type evaluator struct {
	graph  *Graph
	feeds  map[string]Tensor
	values map[*Output]*value
}

func (ev *evaluator) eval(out *Output) *value {
	if v, found := ev.values[out]; found {
		return v
	}
	if out.Op.graph != ev.graph {
		exceptions.Panicf("ge: fetched output %s doesn't belong to graph %q", out, ev.graph.name)
	}
	exec, found := executors[out.Op.opType]
	if !found {
		panic(errors.Wrapf(ErrNotExecutable, "operator %q of type %q", out.Op.name, out.Op.opType))
	}
	if out.Port != "y" {
		exceptions.Panicf("ge: operator %q has no output port %q", out.Op.name, out.Port)
	}
	klog.V(5).Infof("ge.Execute: evaluating %s (%s)", out.Op.name, out.Op.opType)
	v := exec(ev, out.Op)
	ev.values[out] = v
	return v
}

// input evaluates the source of the named input port, panicking if it's not connected.
func (ev *evaluator) input(op *Operator, port string) *value {
	src := op.Input(port)
	if src == nil {
		exceptions.Panicf("ge: input %q of operator %q (%s) is not connected", port, op.name, op.opType)
	}
	return ev.eval(src)
}

// optionalInput evaluates the source of the named input port, or returns nil if it's not connected.
func (ev *evaluator) optionalInput(op *Operator, port string) *value {
	if op.Input(port) == nil {
		return nil
	}
	return ev.eval(op.Input(port))
}

func attrOr[T any](op *Operator, name string, defaultValue T) T {
	raw, found := op.attrs[name]
	if !found {
		return defaultValue
	}
	v, ok := raw.(T)
	if !ok {
		exceptions.Panicf("ge: attribute %q of operator %q is %T, expected %T", name, op.name, raw, defaultValue)
	}
	return v
}

// ints returns the values of v as ints.
func (v *value) ints() []int {
	ints := make([]int, len(v.flat))
	for ii, f := range v.flat {
		ints[ii] = int(f)
	}
	return ints
}

func decodeFlat[T constraints.Integer | constraints.Float](data []byte, size int, read func([]byte) T) []float64 {
	flat := make([]float64, size)
	elementSize := len(data) / max(size, 1)
	for ii := range flat {
		flat[ii] = float64(read(data[ii*elementSize:]))
	}
	return flat
}

// decode converts a tensor to its host value.
func decode(t Tensor) *value {
	size := t.Desc.Size()
	if size < 0 {
		exceptions.Panicf("ge: tensor with unknown dimensions %s can't be evaluated", t.Desc)
	}
	dtype := t.Desc.DType
	if want := size * int(dtype.Size()); len(t.Data) != want {
		exceptions.Panicf("ge: tensor %s requires %d bytes, got %d", t.Desc, want, len(t.Data))
	}
	le := binary.LittleEndian
	v := &value{dtype: dtype, dims: make([]int, len(t.Desc.Dims))}
	for ii, dim := range t.Desc.Dims {
		v.dims[ii] = int(dim)
	}
	switch dtype {
	case dtypes.Float32:
		v.flat = decodeFlat(t.Data, size, func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) })
	case dtypes.Float64:
		v.flat = decodeFlat(t.Data, size, func(b []byte) float64 { return math.Float64frombits(le.Uint64(b)) })
	case dtypes.Float16:
		v.flat = decodeFlat(t.Data, size, func(b []byte) float32 { return float16.Frombits(le.Uint16(b)).Float32() })
	case dtypes.Int8:
		v.flat = decodeFlat(t.Data, size, func(b []byte) int8 { return int8(b[0]) })
	case dtypes.Uint8, dtypes.Bool:
		v.flat = decodeFlat(t.Data, size, func(b []byte) uint8 { return b[0] })
	case dtypes.Int16:
		v.flat = decodeFlat(t.Data, size, func(b []byte) int16 { return int16(le.Uint16(b)) })
	case dtypes.Int32:
		v.flat = decodeFlat(t.Data, size, func(b []byte) int32 { return int32(le.Uint32(b)) })
	case dtypes.Int64:
		v.flat = decodeFlat(t.Data, size, func(b []byte) int64 { return int64(le.Uint64(b)) })
	default:
		exceptions.Panicf("ge: dtype %s not supported by the reference executor", dtype)
	}
	return v
}

// encode converts a host value to a tensor, truncating towards zero for integer dtypes.
func encode(v *value) Tensor {
	dims := make([]int64, len(v.dims))
	for ii, dim := range v.dims {
		dims[ii] = int64(dim)
	}
	t := Tensor{Desc: TensorDesc{DType: v.dtype, Dims: dims}}
	le := binary.LittleEndian
	buf := make([]byte, 0, len(v.flat)*int(v.dtype.Size()))
	for _, f := range v.flat {
		switch v.dtype {
		case dtypes.Float32:
			buf = le.AppendUint32(buf, math.Float32bits(float32(f)))
		case dtypes.Float64:
			buf = le.AppendUint64(buf, math.Float64bits(f))
		case dtypes.Float16:
			buf = le.AppendUint16(buf, float16.Fromfloat32(float32(f)).Bits())
		case dtypes.Int8, dtypes.Uint8:
			buf = append(buf, byte(int64(f)))
		case dtypes.Bool:
			if f != 0 {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case dtypes.Int16:
			buf = le.AppendUint16(buf, uint16(int16(f)))
		case dtypes.Int32:
			buf = le.AppendUint32(buf, uint32(int32(f)))
		case dtypes.Int64:
			buf = le.AppendUint64(buf, uint64(int64(f)))
		default:
			exceptions.Panicf("ge: dtype %s not supported by the reference executor", v.dtype)
		}
	}
	t.Data = buf
	return t
}

// convert returns the value converted to dtype: integer and boolean dtypes are truncated towards zero.
func convert(v *value, dtype dtypes.DType) *value {
	out := &value{dtype: dtype, dims: v.dims, flat: make([]float64, len(v.flat))}
	for ii, f := range v.flat {
		switch {
		case dtype == dtypes.Bool:
			if f != 0 {
				out.flat[ii] = 1
			}
		case dtype.IsInt():
			out.flat[ii] = math.Trunc(f)
		case dtype == dtypes.Float32:
			out.flat[ii] = float64(float32(f))
		case dtype == dtypes.Float16:
			out.flat[ii] = float64(float16.Fromfloat32(float32(f)).Float32())
		default:
			out.flat[ii] = f
		}
	}
	return out
}

// Float32s decodes the data of a FLOAT32 or FLOAT16 tensor. It's a convenience for tests and tools.
func (t Tensor) Float32s() ([]float32, error) {
	if t.Desc.DType != dtypes.Float32 && t.Desc.DType != dtypes.Float16 {
		return nil, errors.Errorf("tensor %s is not a float tensor", t.Desc)
	}
	var v *value
	if err := exceptions.TryCatch[error](func() { v = decode(t) }); err != nil {
		return nil, err
	}
	values := make([]float32, len(v.flat))
	for ii, f := range v.flat {
		values[ii] = float32(f)
	}
	return values, nil
}

// Int32s decodes the data of an INT32 tensor. It's a convenience for tests and tools.
func (t Tensor) Int32s() ([]int32, error) {
	if t.Desc.DType != dtypes.Int32 {
		return nil, errors.Errorf("tensor %s is not an int32 tensor", t.Desc)
	}
	values := make([]int32, len(t.Data)/4)
	for ii := range values {
		values[ii] = int32(binary.LittleEndian.Uint32(t.Data[ii*4:]))
	}
	return values, nil
}
