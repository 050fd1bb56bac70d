package scripting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waysky/internal/model"
)

func loadJS(t *testing.T, code string) (*JSEngine, Handle) {
	t.Helper()
	e := NewJSEngine(0)
	h, err := e.Load(Source{Name: "inline:test", Code: code})
	require.NoError(t, err)
	return e, h
}

func TestJSInvokeString(t *testing.T) {
	e, h := loadJS(t, `function lines() { return "hello" }`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []model.StyledLine{model.Plain("hello")}, out)
}

func TestJSInvokeStyledObject(t *testing.T) {
	e, h := loadJS(t, `function lines() {
		return { text: "alert", fg_color: "#ff0000", font_size: 16 }
	}`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "alert", out[0].Text)
	assert.Equal(t, "#ff0000", out[0].Style.FGColor)
	assert.Equal(t, 16.0, out[0].Style.FontSize)
}

func TestJSInvokeArrayOrder(t *testing.T) {
	e, h := loadJS(t, `function lines() {
		return ["first", "second", { text: "third" }]
	}`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Text)
	assert.Equal(t, "second", out[1].Text)
	assert.Equal(t, "third", out[2].Text)
}

func TestJSSnapshotGlobals(t *testing.T) {
	e, h := loadJS(t, `function lines() {
		return hostname + " cores=" + cpu_count + " net=" + networks[0].interface
	}`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "testhost cores=4 net=eth0", out[0].Text)
}

func TestJSMissingFunction(t *testing.T) {
	e, h := loadJS(t, `var x = 1`)
	_, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lines"`)
}

func TestJSRuntimeError(t *testing.T) {
	e, h := loadJS(t, `function lines() { throw new Error("boom") }`)
	_, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestJSLoadError(t *testing.T) {
	e := NewJSEngine(0)
	_, err := e.Load(Source{Name: "inline:test", Code: `function broken(`})
	assert.Error(t, err)
}

func TestJSTimeoutInterrupts(t *testing.T) {
	e := NewJSEngine(50 * time.Millisecond)
	h, err := e.Load(Source{Name: "inline:test", Code: `function lines() { while (true) {} }`})
	require.NoError(t, err)

	_, err = e.Invoke(context.Background(), h, "lines", testSnapshot())
	assert.Error(t, err)
}

func TestJSTimeoutDoesNotPoisonNextCall(t *testing.T) {
	e := NewJSEngine(50 * time.Millisecond)
	h, err := e.Load(Source{Name: "inline:test", Code: `
		function spin() { while (true) {} }
		function quick() { return "fine" }
	`})
	require.NoError(t, err)

	_, err = e.Invoke(context.Background(), h, "spin", testSnapshot())
	require.Error(t, err)

	// The interrupt from the timed-out call must not leak into the next one.
	out, err := e.Invoke(context.Background(), h, "quick", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []model.StyledLine{model.Plain("fine")}, out)
}

func TestJSHookAppendsLine(t *testing.T) {
	e, h := loadJS(t, `function on_draw(lines) {
		lines.push({ text: "extra", bg_color: "#00000080" })
		return lines
	}`)
	in := []model.StyledLine{model.Plain("one")}
	out, err := e.InvokeHook(context.Background(), h, "on_draw", in, testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "one", out[0].Text)
	assert.Equal(t, "extra", out[1].Text)
	assert.Equal(t, "#00000080", out[1].Style.BGColor)
}

func TestJSHookRejectsScalarReturn(t *testing.T) {
	e, h := loadJS(t, `function on_draw(lines) { return 7 }`)
	_, err := e.InvokeHook(context.Background(), h, "on_draw", nil, testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence")
}
