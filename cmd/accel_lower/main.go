// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// accel_lower lowers a model described in a YAML file with one of the accelerator backends, and prints a
// summary of the native graph.
//
// Usage:
//
//	accel_lower [-backend=<name>:<options>] [-dot=model.dot] [-json=operators.json] model.yaml
//
// It exits with code 2 if the model can't be lowered with the given parameters (INVALID_PARAMETER), and
// with a fatal log on any other failure.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/accel/backends"
	_ "github.com/gomlx/accel/backends/default"
	"github.com/gomlx/accel/pkg/core/ir"
	"github.com/gomlx/exceptions"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagBackend = flag.String("backend", "", "Backend configuration, formatted as \"<name>:<options>\", e.g. "+
		"\"npu:relu_in_conv=false\". If empty, $"+backends.ACCEL_BACKEND+" or the first registered backend is used.")
	flagDot      = flag.String("dot", "", "Write the model graph in Graphviz DOT format to the given file.")
	flagJSON     = flag.String("json", "", "Write the native operators of the lowered program as JSON to the given file.")
	flagProgress = flag.Bool("progress", true, "Display a progress bar while lowering.")
	flagList     = flag.Bool("list", false, "List the registered backends and exit.")
)

// exitInvalidParameter is the exit code when the model can't be lowered with its parameters.
const exitInvalidParameter = 2

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagList {
		listBackends()
		return
	}
	args := flag.Args()
	if len(args) != 1 {
		klog.Errorf("Expected exactly one model file to lower. See 'accel_lower -help'.")
		os.Exit(1)
	}
	modelPath := args[0]
	model, name, err := loadModelFile(modelPath)
	if err != nil {
		klog.Fatalf("Failed to load %q: %+v", modelPath, err)
	}
	if name == "" {
		name = modelPath
	}
	if *flagDot != "" {
		if err := os.WriteFile(*flagDot, []byte(ir.Visualize(model)), 0644); err != nil {
			klog.Fatalf("Failed to write DOT file: %+v", err)
		}
	}

	var program backends.Program
	var buildErr error
	err = exceptions.TryCatch[error](func() {
		backend := newBackend(*flagBackend)
		program, buildErr = lower(backend, model, *flagProgress)
	})
	if err != nil {
		klog.Fatalf("Lowering %q failed (%s): %+v", name, backends.ResultCodeOf(err), err)
	}
	if buildErr != nil {
		klog.Errorf("Lowering %q failed (%s): %v", name, backends.ResultCodeOf(buildErr), buildErr)
		klog.Flush()
		os.Exit(exitInvalidParameter)
	}

	fmt.Println(summary(name, model, program))
	if *flagJSON != "" {
		if err := writeJSON(*flagJSON, program); err != nil {
			klog.Fatalf("Failed to write JSON file: %+v", err)
		}
	}
}

func newBackend(config string) backends.Backend {
	if config == "" {
		return backends.New()
	}
	return backends.NewWithConfig(config)
}

// lower builds the program, displaying a progress bar on stderr if requested.
func lower(backend backends.Backend, model *ir.Model, withProgress bool) (backends.Program, error) {
	if !withProgress {
		return backend.Build(model)
	}
	bar := progressbar.NewOptions(len(model.Operations()),
		progressbar.OptionSetDescription(fmt.Sprintf("Lowering with %q", backend.Name())),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	program, err := backend.Build(model, backends.WithProgress(func(done, _ int) {
		_ = bar.Set(done)
	}))
	_ = bar.Finish()
	return program, err
}

func listBackends() {
	table := newPlainTable(true, lipgloss.Left)
	table.Row("Backend", "Description")
	for _, name := range backends.List() {
		table.Row(name, backends.NewWithConfig(name).Description())
	}
	fmt.Println(table.Render())
}
