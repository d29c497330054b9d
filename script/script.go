// Package script runs user-supplied JavaScript over computed takeoff totals
// to derive priced estimates or custom roll-ups. Scripts see a read-only
// snapshot of the totals and return a value; they can never reach back into
// the ledger.
package script

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/wudi/takeoffkit/aggregate"
)

// Hook is a single-use script evaluator. Not safe for concurrent use.
type Hook struct {
	vm *goja.Runtime
}

// NewHook creates an evaluator with a fresh JavaScript runtime.
func NewHook() *Hook {
	return &Hook{vm: goja.New()}
}

// Run exposes the totals as the global `totals` object and executes src.
// The script's completion value is returned exported to plain Go values.
// Cancelling the context interrupts a long-running script.
func (h *Hook) Run(ctx context.Context, src string, t aggregate.Totals) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := h.vm.NewObject()
	if err := totals.Set("hours", t.Hours); err != nil {
		return nil, err
	}
	if err := totals.Set("devices", t.Devices); err != nil {
		return nil, err
	}
	if err := totals.Set("points", t.Points); err != nil {
		return nil, err
	}
	var wire []map[string]interface{}
	for key, length := range t.Wire {
		wire = append(wire, map[string]interface{}{
			"type":     string(key.Type),
			"cable":    key.Cable,
			"material": string(key.Material),
			"length":   length,
		})
	}
	if err := totals.Set("wire", wire); err != nil {
		return nil, err
	}
	if err := h.vm.Set("totals", totals); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer h.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			h.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := h.vm.RunString(src)
	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			if cause := interrupted.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("script: %w", err)
	}
	return val.Export(), nil
}
