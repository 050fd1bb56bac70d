package collector

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waysky/internal/model"
	"waysky/internal/scripting"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry() *scripting.Registry {
	return scripting.NewRegistry(scripting.NewLuaEngine(0), scripting.NewJSEngine(0))
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		CPUUsage:      42.5,
		CPUCount:      2,
		CPUPerCore:    []float64{40.0, 45.0},
		MemUsed:       2 * 1024 * 1024 * 1024,
		MemTotal:      8 * 1024 * 1024 * 1024,
		MemUsagePct:   25,
		Hostname:      "testhost",
		UptimeSeconds: 2*3600 + 17*60,
		Disks: []model.DiskInfo{
			{MountPoint: "/", TotalBytes: 100 * 1024 * 1024 * 1024, AvailableBytes: 75 * 1024 * 1024 * 1024},
		},
		Networks: []model.NetworkInfo{
			{Interface: "eth0", RxBytes: 1024, TxBytes: 2048},
		},
	}
}

func newTestPipeline(t *testing.T, modules []model.Module) *Pipeline {
	t.Helper()
	p, err := NewPipeline(testLogger(), modules, testRegistry(), 5*time.Second)
	require.NoError(t, err)
	return p
}

func texts(lines []model.StyledLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestCollectPreservesDeclarationOrder(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleHostname},
		{Kind: model.ModuleExec, Command: "echo hi"},
		{Kind: model.ModuleText, Content: "---"},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	assert.Equal(t, []string{"HOST: testhost", "hi", "---"}, texts(lines))
}

func TestCollectBuiltinFormats(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleCPU, Label: "CPU"},
		{Kind: model.ModuleMemory, Label: "MEM"},
		{Kind: model.ModuleDisk, MountPoint: "/"},
		{Kind: model.ModuleNetwork, Interface: "eth0"},
		{Kind: model.ModuleUptime},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	assert.Equal(t, []string{
		"CPU: 42.5%",
		"MEM: 2.0 GiB/8.0 GiB (25%)",
		"DISK /: 25 GiB/100 GiB",
		"NET eth0: rx 1.0 KiB / tx 2.0 KiB",
		"UPTIME: 2h 17m",
	}, texts(lines))
}

func TestCollectPerCoreCPU(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleCPU, Label: "CPU", ShowPerCore: true},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	assert.Equal(t, []string{"  core 0: 40.0%", "  core 1: 45.0%"}, texts(lines))
}

func TestCollectMissingDiskAndNetwork(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleDisk, MountPoint: "/nope"},
		{Kind: model.ModuleNetwork, Interface: "wlan9"},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	assert.Equal(t, []string{"DISK /nope: not found", "NET wlan9: not found"}, texts(lines))
}

func TestCollectExecFailureYieldsDiagnostic(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleExec, Command: "exit 3"},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "[exec error:")
}

func TestCollectExecLabelPrefix(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleExec, Command: "echo 3 updates", Label: "pkg"},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	assert.Equal(t, []string{"pkg: 3 updates"}, texts(lines))
}

func TestCollectScriptModuleArrayOrder(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleText, Content: "before"},
		{
			Kind:     model.ModuleScript,
			Backend:  "lua",
			Function: "lines",
			Code:     `function lines() return { "s1", "s2" } end`,
		},
		{Kind: model.ModuleText, Content: "after"},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	assert.Equal(t, []string{"before", "s1", "s2", "after"}, texts(lines))
}

func TestCollectScriptRuntimeErrorYieldsDiagnostic(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{
			Kind:     model.ModuleScript,
			Backend:  "lua",
			Function: "lines",
			Code:     `function lines() error("boom") end`,
		},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "[lua error:")
	assert.Contains(t, lines[0].Text, "boom")
}

func TestCollectScriptLoadFailureRepeatsDiagnostic(t *testing.T) {
	p := newTestPipeline(t, []model.Module{
		{
			Kind:     model.ModuleScript,
			Backend:  "js",
			Function: "lines",
			Code:     `function broken(`,
		},
	})

	for i := 0; i < 2; i++ {
		lines := p.Collect(context.Background(), testSnapshot())
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0].Text, "[js error:")
	}
}

func TestCollectUnknownBackendIsStartupError(t *testing.T) {
	_, err := NewPipeline(testLogger(), []model.Module{
		{Kind: model.ModuleScript, Backend: "rhai", Function: "lines", Code: "x"},
	}, testRegistry(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rhai")
}

func TestScriptNameDistinguishesInlineAndFile(t *testing.T) {
	assert.Equal(t, "inline:lines", scriptName(model.Module{
		Kind: model.ModuleScript, Function: "lines", Code: "function lines() end",
	}))
	assert.Equal(t, "/tmp/widget.lua", scriptName(model.Module{
		Kind: model.ModuleScript, Function: "lines", File: "/tmp/widget.lua",
	}))
}

func TestCollectModuleStyleInheritance(t *testing.T) {
	style := &model.LineStyle{FGColor: "#ff0000"}
	p := newTestPipeline(t, []model.Module{
		{Kind: model.ModuleText, Content: "plain", Style: style},
		{
			Kind:     model.ModuleScript,
			Backend:  "lua",
			Function: "lines",
			Style:    style,
			Code:     `function lines() return { "inherits", { text = "own", fg_color = "#00ff00" } } end`,
		},
	})

	lines := p.Collect(context.Background(), testSnapshot())
	require.Len(t, lines, 3)
	assert.Equal(t, "#ff0000", lines[0].Style.FGColor)
	assert.Equal(t, "#ff0000", lines[1].Style.FGColor)
	// A line carrying its own style keeps it.
	assert.Equal(t, "#00ff00", lines[2].Style.FGColor)
}
