// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"slices"

	"github.com/pkg/errors"
)

// SortOperationsInTopologicalOrder returns the operations of the model such that every operation comes after
// the producers of all its inputs.
//
// Among operations that are ready at the same time the one declared first comes first, so a model declared
// in a valid order is returned unchanged.
//
// It panics with an error wrapping ErrCycle if the operations can't be ordered.
func SortOperationsInTopologicalOrder(model *Model) []*Operation {
	operations := model.Operations()
	numOps := len(operations)
	pending := make([]int, numOps)
	consumers := make([][]int, numOps)
	for _, op := range operations {
		var producers []int
		for _, input := range op.Inputs {
			if input == nil {
				continue
			}
			producer := model.Producer(input)
			if producer == nil || slices.Contains(producers, producer.id) {
				continue
			}
			producers = append(producers, producer.id)
			consumers[producer.id] = append(consumers[producer.id], op.id)
		}
		pending[op.id] = len(producers)
	}

	// ready is kept sorted by declaration index.
	var ready []int
	for idx, count := range pending {
		if count == 0 {
			ready = append(ready, idx)
		}
	}
	sorted := make([]*Operation, 0, numOps)
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]
		sorted = append(sorted, operations[idx])
		for _, consumerIdx := range consumers[idx] {
			pending[consumerIdx]--
			if pending[consumerIdx] == 0 {
				pos, _ := slices.BinarySearch(ready, consumerIdx)
				ready = slices.Insert(ready, pos, consumerIdx)
			}
		}
	}
	if len(sorted) != numOps {
		for idx, count := range pending {
			if count > 0 {
				panic(errors.Wrapf(ErrCycle, "%d operations out of %d can't be ordered, including %s",
					numOps-len(sorted), numOps, OperationToString(operations[idx])))
			}
		}
	}
	return sorted
}
