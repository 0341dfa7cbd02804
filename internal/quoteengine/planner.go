package quoteengine

import "fmt"

// PlanInputs flattens routes x amounts into a positional, route-major
// amount-minor sequence of EncodedInput (§4.1 "Layout rule"), encoding
// each route's path once (reversed for ExactOut, §4.1 "Encoding rule").
func PlanInputs(routes []RouteSpec, amounts []Amount, direction QuoteDirection) []EncodedInput {
	inputs := make([]EncodedInput, 0, len(routes)*len(amounts))
	for ri, route := range routes {
		path := EncodePath(route, direction)
		for ai, amount := range amounts {
			inputs = append(inputs, EncodedInput{
				EncodedPath: path,
				RawAmount:   amount.Raw(),
				RouteIndex:  ri,
				AmountIndex: ai,
			})
		}
	}
	return inputs
}

// ChunkInputs splits a positional input sequence into contiguous batches
// as evenly sized as possible, each never exceeding multicallChunk
// (§4.1 "Chunking rule"):
//
//	num_chunks = ceil(N / multicall_chunk)
//	normalized = ceil(N / num_chunks)
//
// The first N mod num_chunks chunks hold normalized inputs and the rest
// hold one fewer, so the size gap between any two chunks is at most one.
func ChunkInputs(inputs []EncodedInput, multicallChunk int) ([][]EncodedInput, error) {
	n := len(inputs)
	if n == 0 {
		return nil, nil
	}
	if multicallChunk <= 0 {
		return nil, fmt.Errorf("planner: multicall_chunk must be positive, got %d", multicallChunk)
	}

	numChunks := ceilDiv(n, multicallChunk)
	base, extra := n/numChunks, n%numChunks

	chunks := make([][]EncodedInput, 0, numChunks)
	start := 0
	for i := 0; i < numChunks; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, inputs[start:start+size])
		start += size
	}
	return chunks, nil
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
