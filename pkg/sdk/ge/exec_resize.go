// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ge

import (
	"math"

	"github.com/gomlx/exceptions"
)

func init() {
	executors[TypeResizeNearestNeighborV2] = execResizeNearestNeighborV2
	executors[TypeResizeBilinearV2] = execResizeBilinearV2
}

// resizeSetup returns the output height and width from the "size" input, after validating the NCHW input.
func resizeSetup(ev *evaluator, op *Operator) (x *value, outHeight, outWidth int) {
	x = ev.input(op, "x")
	size := ev.input(op, "size").ints()
	if len(x.dims) != 4 {
		exceptions.Panicf("ge: %s %q requires an NCHW input, got dims %v", op.opType, op.name, x.dims)
	}
	if len(size) != 2 || size[0] <= 0 || size[1] <= 0 {
		exceptions.Panicf("ge: %s %q requires a positive size (height, width), got %v", op.opType, op.name, size)
	}
	return x, size[0], size[1]
}

// sourceCoordinate maps an output coordinate to the input, following the align_corners and half_pixel_centers
// conventions.
func sourceCoordinate(dst, inSize, outSize int, alignCorners, halfPixel bool) float64 {
	if alignCorners && outSize > 1 {
		return float64(dst) * float64(inSize-1) / float64(outSize-1)
	}
	scale := float64(inSize) / float64(outSize)
	if halfPixel {
		return (float64(dst)+0.5)*scale - 0.5
	}
	return float64(dst) * scale
}

func execResizeNearestNeighborV2(ev *evaluator, op *Operator) *value {
	x, outHeight, outWidth := resizeSetup(ev, op)
	alignCorners := attrOr(op, "align_corners", false)
	halfPixel := attrOr(op, "half_pixel_centers", false)
	inHeight, inWidth := x.dims[2], x.dims[3]
	dims := []int{x.dims[0], x.dims[1], outHeight, outWidth}
	pick := func(dst, inSize, outSize int) int {
		src := sourceCoordinate(dst, inSize, outSize, alignCorners, halfPixel)
		if alignCorners {
			return min(int(math.Round(src)), inSize-1)
		}
		if halfPixel {
			src += 0.5
		}
		return floorClamp(src, inSize)
	}
	srcIdx := make([]int, 4)
	return gather(x, dims, func(outIdx []int) []int {
		srcIdx[0], srcIdx[1] = outIdx[0], outIdx[1]
		srcIdx[2] = pick(outIdx[2], inHeight, outHeight)
		srcIdx[3] = pick(outIdx[3], inWidth, outWidth)
		return srcIdx
	})
}

func execResizeBilinearV2(ev *evaluator, op *Operator) *value {
	x, outHeight, outWidth := resizeSetup(ev, op)
	alignCorners := attrOr(op, "align_corners", false)
	halfPixel := attrOr(op, "half_pixel_centers", false)
	batch, channels, inHeight, inWidth := x.dims[0], x.dims[1], x.dims[2], x.dims[3]
	out := &value{dtype: x.dtype, dims: []int{batch, channels, outHeight, outWidth},
		flat: make([]float64, batch*channels*outHeight*outWidth)}
	lerp := func(dst, inSize, outSize int) (lo, hi int, frac float64) {
		src := max(sourceCoordinate(dst, inSize, outSize, alignCorners, halfPixel), 0)
		lo = floorClamp(src, inSize)
		hi = min(lo+1, inSize-1)
		return lo, hi, src - float64(lo)
	}
	outIdx := 0
	for plane := range batch * channels {
		in := x.flat[plane*inHeight*inWidth : (plane+1)*inHeight*inWidth]
		for row := range outHeight {
			y0, y1, fy := lerp(row, inHeight, outHeight)
			for col := range outWidth {
				x0, x1, fx := lerp(col, inWidth, outWidth)
				top := in[y0*inWidth+x0]*(1-fx) + in[y0*inWidth+x1]*fx
				bottom := in[y1*inWidth+x0]*(1-fx) + in[y1*inWidth+x1]*fx
				out.flat[outIdx] = top*(1-fy) + bottom*fy
				outIdx++
			}
		}
	}
	return convert(out, x.dtype)
}
