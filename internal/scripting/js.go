package scripting

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dop251/goja"

	"waysky/internal/model"
)

// JSEngine embeds a goja interpreter per handle. Functionally interchangeable
// with the Lua backend: same globals in, same line contract out.
type JSEngine struct {
	timeout time.Duration
}

func NewJSEngine(timeout time.Duration) *JSEngine {
	return &JSEngine{timeout: timeout}
}

func (e *JSEngine) Name() string { return "js" }

type jsHandle struct {
	vm *goja.Runtime
}

func (e *JSEngine) Load(src Source) (Handle, error) {
	code := src.Code
	if code == "" {
		b, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("js load %s: %w", src.Name, err)
		}
		code = string(b)
	}

	vm := goja.New()
	if _, err := vm.RunScript(src.Name, code); err != nil {
		return nil, fmt.Errorf("js load %s: %w", src.Name, err)
	}
	return &jsHandle{vm: vm}, nil
}

func (e *JSEngine) Invoke(ctx context.Context, h Handle, fn string, snap *model.Snapshot) ([]model.StyledLine, error) {
	ret, err := e.call(ctx, h, fn, snap)
	if err != nil {
		return nil, err
	}
	return linesFromValue(ret)
}

func (e *JSEngine) InvokeHook(ctx context.Context, h Handle, fn string, lines []model.StyledLine, snap *model.Snapshot) ([]model.StyledLine, error) {
	ret, err := e.call(ctx, h, fn, snap, linesToValue(lines))
	if err != nil {
		return nil, err
	}
	return hookLinesFromValue(ret)
}

func (e *JSEngine) call(ctx context.Context, h Handle, fn string, snap *model.Snapshot, args ...any) (any, error) {
	jh, ok := h.(*jsHandle)
	if !ok {
		return nil, fmt.Errorf("handle is not a js handle")
	}
	vm := jh.vm

	for name, v := range snapshotValues(snap) {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("js bind %s: %w", name, err)
		}
	}

	fnVal, ok := goja.AssertFunction(vm.Get(fn))
	if !ok {
		return nil, fmt.Errorf("js function %q is not defined", fn)
	}

	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			vm.Interrupt("script timeout")
		})
		// The timer must be stopped before the interrupt is cleared, or a
		// firing in between would poison the next invocation.
		defer func() {
			timer.Stop()
			vm.ClearInterrupt()
		}()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callArgs := make([]goja.Value, len(args))
	for i, a := range args {
		callArgs[i] = vm.ToValue(a)
	}
	v, err := fnVal(goja.Undefined(), callArgs...)
	if err != nil {
		return nil, fmt.Errorf("js %s: %w", fn, err)
	}
	return v.Export(), nil
}
