// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/gomlx/accel/backends"
	"github.com/gomlx/accel/backends/gpupipeline"
	"github.com/gomlx/accel/backends/graphengine"
	"github.com/gomlx/accel/backends/npugraph"
	"github.com/gomlx/accel/pkg/sdk/ge"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// nativeOperator is the JSON form of an operator (or dispatch) of the native graph.
type nativeOperator struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Inputs     []string `json:"inputs,omitempty"`
	Outputs    []string `json:"outputs,omitempty"`
	Attributes any      `json:"attributes,omitempty"`
}

type nativeDump struct {
	Backend   string                `json:"backend"`
	ProgramID string                `json:"program_id"`
	Stats     backends.ProgramStats `json:"stats"`
	Operators []nativeOperator      `json:"operators"`
}

func writeJSON(path string, program backends.Program) error {
	contents, err := json.MarshalIndent(dumpProgram(program), "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding native graph of program %s", program.ID())
	}
	return errors.Wrapf(os.WriteFile(path, contents, 0644), "writing %q", path)
}

func dumpProgram(program backends.Program) nativeDump {
	dump := nativeDump{
		Backend:   program.BackendName(),
		ProgramID: program.ID().String(),
		Stats:     program.Stats(),
	}
	switch p := program.(type) {
	case *graphengine.Program:
		dump.Operators = dumpGraphEngine(p)
	case *npugraph.Program:
		dump.Operators = dumpNPU(p)
	case *gpupipeline.Program:
		dump.Operators = dumpGPU(p)
	default:
		klog.Warningf("No JSON dump of the native graph for backend %q", program.BackendName())
	}
	return dump
}

func dumpGraphEngine(p *graphengine.Program) []nativeOperator {
	operators := make([]nativeOperator, 0, p.Graph().NumOperators())
	for _, op := range p.Graph().Operators() {
		n := nativeOperator{Name: op.Name(), Type: op.Type()}
		for _, port := range op.InputPorts() {
			if src := op.Input(port); src != nil {
				n.Inputs = append(n.Inputs, fmt.Sprintf("%s=%s", port, src))
				continue
			}
			for ii, src := range op.DynamicInputs(port) {
				n.Inputs = append(n.Inputs, fmt.Sprintf("%s%d=%v", port, ii, src))
			}
		}
		if names := op.AttrNames(); len(names) > 0 {
			attrs := make(map[string]any, len(names))
			for _, name := range names {
				attrs[name] = jsonAttr(op.Attr(name))
			}
			n.Attributes = attrs
		}
		operators = append(operators, n)
	}
	return operators
}

// jsonAttr converts the attribute values that don't have a readable JSON form.
func jsonAttr(value any) any {
	switch v := value.(type) {
	case ge.Tensor:
		return fmt.Sprintf("tensor(%s%v, %d bytes)", v.Desc.DType, v.Desc.Dims, len(v.Data))
	case dtypes.DType:
		return v.String()
	case ge.Format:
		return v.String()
	default:
		return value
	}
}

func dumpNPU(p *npugraph.Program) []nativeOperator {
	operators := make([]nativeOperator, 0, len(p.Graph().Operators()))
	for _, op := range p.Graph().Operators() {
		n := nativeOperator{Name: op.Name, Type: op.Type.String(), Attributes: op.Attr}
		if n.Name == "" {
			n.Name = fmt.Sprintf("#%d", op.Index())
		}
		for _, tensor := range op.Inputs {
			n.Inputs = append(n.Inputs, tensor.String())
		}
		for _, tensor := range op.Outputs {
			n.Outputs = append(n.Outputs, tensor.String())
		}
		operators = append(operators, n)
	}
	return operators
}

func dumpGPU(p *gpupipeline.Program) []nativeOperator {
	operators := make([]nativeOperator, 0, len(p.Pipeline().Dispatches()))
	for _, dispatch := range p.Pipeline().Dispatches() {
		n := nativeOperator{
			Name: dispatch.Label,
			Type: "DISPATCH",
			Attributes: map[string]any{
				"entry_point":  dispatch.EntryPoint,
				"workgroups":   dispatch.Workgroups,
				"shader_bytes": len(dispatch.Shader),
			},
		}
		for _, binding := range dispatch.Bindings {
			if binding.ReadOnly {
				n.Inputs = append(n.Inputs, binding.Buffer.String())
			} else {
				n.Outputs = append(n.Outputs, binding.Buffer.String())
			}
		}
		operators = append(operators, n)
	}
	return operators
}
