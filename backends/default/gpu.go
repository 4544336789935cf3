//go:build !nogpu

package _default

import _ "github.com/gomlx/accel/backends/gpupipeline"
