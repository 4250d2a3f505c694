// Package compose turns frames, audio windows, and face crops into model
// batches and pastes predictions back into frames.
//
// Face tensors stack a copy with the lower half zeroed on top of the
// unmasked reference crop, giving six channels in blue, green, red order.
package compose
