// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default includes the default backends, namely the graph engine ("ge"), the NPU graph builder ("npu")
// and the GPU compute-shader pipeline ("gpu").
//
// To use it simply include:
//
//	import _ "github.com/gomlx/accel/backends/default"
//
// If you add the tag `nogpu` it will not include the GPU pipeline.
package _default

import (
	_ "github.com/gomlx/accel/backends/graphengine"
	_ "github.com/gomlx/accel/backends/npugraph"
)
