// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gpu models a compute-shader pipeline of a GPU SDK: storage buffers and an ordered list of dispatches,
// each running one WGSL entry point over a grid of workgroups with its buffers bound to @group(0).
package gpu

import (
	"fmt"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// WorkgroupSize is the number of invocations per workgroup assumed by the generated shaders.
const WorkgroupSize = 64

// MaxWorkgroupsPerDimension is the largest number of workgroups along one dimension of a dispatch.
const MaxWorkgroupsPerDimension = 65535

// Buffer is a storage buffer of the pipeline.
type Buffer struct {
	index int
	Label string
	DType dtypes.DType
	Dims  []int

	// Data is the initial content uploaded before the first dispatch, nil for buffers written by dispatches
	// or fed at execution time.
	Data []byte
}

// Index of creation in the pipeline.
func (b *Buffer) Index() int { return b.index }

// Size returns the number of elements.
func (b *Buffer) Size() int {
	size := 1
	for _, dim := range b.Dims {
		size *= dim
	}
	return size
}

// Bytes returns the size of the buffer in bytes.
func (b *Buffer) Bytes() int { return b.Size() * b.DType.Size() }

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	return fmt.Sprintf("%s(%s%v)", b.Label, b.DType, b.Dims)
}

// Binding of a buffer to a @binding slot of @group(0).
type Binding struct {
	Slot     int
	Buffer   *Buffer
	ReadOnly bool
}

// Dispatch runs one entry point of a shader.
type Dispatch struct {
	index      int
	Label      string
	Shader     string
	EntryPoint string
	Bindings   []Binding
	Workgroups [3]int
}

// Index of the dispatch in the pipeline.
func (d *Dispatch) Index() int { return d.index }

// Pipeline of dispatches, executed in order.
type Pipeline struct {
	label      string
	buffers    []*Buffer
	dispatches []*Dispatch
	inputs     []*Buffer
	outputs    []*Buffer
}

// NewPipeline creates an empty pipeline.
func NewPipeline(label string) *Pipeline {
	return &Pipeline{label: label}
}

// Label of the pipeline.
func (p *Pipeline) Label() string { return p.label }

// CreateBuffer adds a storage buffer. If data is not nil it's uploaded before the first dispatch.
func (p *Pipeline) CreateBuffer(label string, dtype dtypes.DType, dims []int, data []byte) (*Buffer, error) {
	if dtype == dtypes.InvalidDType || dtype.Size() == 0 {
		return nil, errors.Errorf("buffer %q with invalid dtype %s", label, dtype)
	}
	for _, dim := range dims {
		if dim < 0 {
			return nil, errors.Errorf("buffer %q with unknown dimensions %v", label, dims)
		}
	}
	b := &Buffer{index: len(p.buffers), Label: label, DType: dtype, Dims: slices.Clone(dims), Data: data}
	if data != nil && len(data) != b.Bytes() {
		return nil, errors.Errorf("buffer %q %s%v requires %d bytes, got %d", label, dtype, dims, b.Bytes(), len(data))
	}
	p.buffers = append(p.buffers, b)
	return b, nil
}

// AddDispatch appends a dispatch of the entry point of the WGSL shader.
// It requires at least one writable binding, and unique binding slots.
func (p *Pipeline) AddDispatch(label, shader, entryPoint string, workgroups [3]int, bindings ...Binding) (*Dispatch, error) {
	if shader == "" || entryPoint == "" {
		return nil, errors.Errorf("dispatch %q requires a shader and an entry point", label)
	}
	for _, count := range workgroups {
		if count < 1 || count > MaxWorkgroupsPerDimension {
			return nil, errors.Errorf("dispatch %q with invalid number of workgroups %v", label, workgroups)
		}
	}
	slots := make(map[int]bool, len(bindings))
	var writable bool
	for _, binding := range bindings {
		if binding.Buffer == nil || binding.Buffer.index >= len(p.buffers) || p.buffers[binding.Buffer.index] != binding.Buffer {
			return nil, errors.Errorf("dispatch %q binds a buffer that doesn't belong to the pipeline", label)
		}
		if slots[binding.Slot] {
			return nil, errors.Errorf("dispatch %q binds slot %d more than once", label, binding.Slot)
		}
		slots[binding.Slot] = true
		writable = writable || !binding.ReadOnly
	}
	if !writable {
		return nil, errors.Errorf("dispatch %q has no writable binding", label)
	}
	d := &Dispatch{
		index:      len(p.dispatches),
		Label:      label,
		Shader:     shader,
		EntryPoint: entryPoint,
		Bindings:   slices.Clone(bindings),
		Workgroups: workgroups,
	}
	p.dispatches = append(p.dispatches, d)
	return d, nil
}

// WorkgroupsFor returns the workgroup grid to cover numInvocations with WorkgroupSize invocations per workgroup.
// It spills over to the second dimension when the first one is exhausted.
func WorkgroupsFor(numInvocations int) [3]int {
	groups := max((numInvocations+WorkgroupSize-1)/WorkgroupSize, 1)
	if groups <= MaxWorkgroupsPerDimension {
		return [3]int{groups, 1, 1}
	}
	return [3]int{MaxWorkgroupsPerDimension, (groups + MaxWorkgroupsPerDimension - 1) / MaxWorkgroupsPerDimension, 1}
}

// SetInputsOutputs sets the buffers fed and read at execution time.
func (p *Pipeline) SetInputsOutputs(inputs, outputs []*Buffer) {
	p.inputs = slices.Clone(inputs)
	p.outputs = slices.Clone(outputs)
}

// Inputs of the pipeline.
func (p *Pipeline) Inputs() []*Buffer { return p.inputs }

// Outputs of the pipeline.
func (p *Pipeline) Outputs() []*Buffer { return p.outputs }

// Buffers returns all buffers, in order of creation.
func (p *Pipeline) Buffers() []*Buffer { return p.buffers }

// Dispatches returns the dispatches, in order of execution.
func (p *Pipeline) Dispatches() []*Dispatch { return p.dispatches }

// ConstantBytes returns the total size of the initial contents of the buffers.
func (p *Pipeline) ConstantBytes() int {
	total := 0
	for _, b := range p.buffers {
		total += len(b.Data)
	}
	return total
}
