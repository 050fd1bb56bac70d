package scripting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waysky/internal/model"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		CPUUsage:      42.5,
		CPUCount:      4,
		CPUPerCore:    []float64{10, 20, 30, 40},
		MemUsed:       2048,
		MemTotal:      4096,
		MemUsagePct:   50,
		Hostname:      "testhost",
		UptimeSeconds: 3660,
		Disks: []model.DiskInfo{
			{MountPoint: "/", TotalBytes: 100, AvailableBytes: 40},
		},
		Networks: []model.NetworkInfo{
			{Interface: "eth0", RxBytes: 7, TxBytes: 9},
		},
	}
}

func loadLua(t *testing.T, code string) (*LuaEngine, Handle) {
	t.Helper()
	e := NewLuaEngine(0)
	h, err := e.Load(Source{Name: "inline:test", Code: code})
	require.NoError(t, err)
	return e, h
}

func TestLuaInvokeString(t *testing.T) {
	e, h := loadLua(t, `function lines() return "hello" end`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []model.StyledLine{model.Plain("hello")}, out)
}

func TestLuaInvokeMultilineStringSplits(t *testing.T) {
	e, h := loadLua(t, `function lines() return "a\nb\n" end`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []model.StyledLine{model.Plain("a"), model.Plain("b")}, out)
}

func TestLuaInvokeStyledTable(t *testing.T) {
	e, h := loadLua(t, `function lines()
		return { text = "alert", fg_color = "#ff0000", font_size = 16 }
	end`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "alert", out[0].Text)
	assert.Equal(t, "#ff0000", out[0].Style.FGColor)
	assert.Equal(t, 16.0, out[0].Style.FontSize)
}

func TestLuaInvokeMixedSequence(t *testing.T) {
	e, h := loadLua(t, `function lines()
		return { "plain", { text = "styled", bg_color = "#00000080" } }
	end`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, model.Plain("plain"), out[0])
	assert.Equal(t, "styled", out[1].Text)
	assert.Equal(t, "#00000080", out[1].Style.BGColor)
}

func TestLuaSnapshotGlobals(t *testing.T) {
	e, h := loadLua(t, `function lines()
		return hostname .. " cores=" .. cpu_count .. " core1=" .. cpu_per_core[2] .. " disk=" .. disks[1].mount_point
	end`)
	out, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "testhost cores=4 core1=20 disk=/", out[0].Text)
}

func TestLuaMissingFunction(t *testing.T) {
	e, h := loadLua(t, `x = 1`)
	_, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lines"`)
}

func TestLuaRuntimeError(t *testing.T) {
	e, h := loadLua(t, `function lines() error("boom") end`)
	_, err := e.Invoke(context.Background(), h, "lines", testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLuaLoadError(t *testing.T) {
	e := NewLuaEngine(0)
	_, err := e.Load(Source{Name: "inline:test", Code: `function broken(`})
	assert.Error(t, err)
}

func TestLuaHookAppendsLine(t *testing.T) {
	e, h := loadLua(t, `function on_draw(lines)
		lines[#lines + 1] = "extra"
		return lines
	end`)
	in := []model.StyledLine{model.Plain("one"), model.Plain("two")}
	out, err := e.InvokeHook(context.Background(), h, "on_draw", in, testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "one", out[0].Text)
	assert.Equal(t, "two", out[1].Text)
	assert.Equal(t, "extra", out[2].Text)
}

func TestLuaHookRejectsScalarReturn(t *testing.T) {
	e, h := loadLua(t, `function on_draw(lines) return "nope" end`)
	_, err := e.InvokeHook(context.Background(), h, "on_draw", nil, testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence")
}

func TestLuaHookSeesSnapshot(t *testing.T) {
	e, h := loadLua(t, `function on_draw(lines)
		return { "mem=" .. mem_usage_pct }
	end`)
	out, err := e.InvokeHook(context.Background(), h, "on_draw", nil, testSnapshot())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "mem=50", out[0].Text)
}
