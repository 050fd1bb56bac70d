package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"waysky/internal/model"
	"waysky/internal/scripting"
)

// scriptRef is a script module's backend and compiled handle, resolved once
// at startup. A load failure is kept and rendered as a diagnostic line in the
// module's position every frame.
type scriptRef struct {
	engine  scripting.Engine
	handle  scripting.Handle
	loadErr error
}

// Pipeline turns the configured module list plus a snapshot into an ordered
// line sequence. It never fails as a whole: a failing module degrades to one
// inline diagnostic line and collection continues.
type Pipeline struct {
	logger      *slog.Logger
	modules     []model.Module
	scripts     []scriptRef
	execTimeout time.Duration
}

// NewPipeline resolves every script module against the backend registry.
// A module referencing an unregistered backend is a startup error.
func NewPipeline(logger *slog.Logger, modules []model.Module, registry *scripting.Registry, execTimeout time.Duration) (*Pipeline, error) {
	scripts := make([]scriptRef, len(modules))
	for i, mod := range modules {
		if mod.Kind != model.ModuleScript {
			continue
		}
		engine, err := registry.Get(mod.Backend)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}

		src := scripting.Source{Name: scriptName(mod), Code: mod.Code, Path: mod.File}
		handle, loadErr := engine.Load(src)
		if loadErr != nil {
			logger.Warn("script module failed to load", "module", i, "backend", mod.Backend, "error", loadErr)
		}
		scripts[i] = scriptRef{engine: engine, handle: handle, loadErr: loadErr}
	}

	return &Pipeline{
		logger:      logger,
		modules:     modules,
		scripts:     scripts,
		execTimeout: execTimeout,
	}, nil
}

// Collect produces this frame's lines in module declaration order. Returned
// lines that carry no style of their own inherit the module's style.
func (p *Pipeline) Collect(ctx context.Context, snap *model.Snapshot) []model.StyledLine {
	lines := make([]model.StyledLine, 0, len(p.modules))
	for i := range p.modules {
		mod := &p.modules[i]
		out := p.collectModule(ctx, i, mod, snap)
		if mod.Style != nil {
			for j := range out {
				if out[j].Style.IsZero() {
					out[j].Style = *mod.Style
				}
			}
		}
		lines = append(lines, out...)
	}
	return lines
}

func (p *Pipeline) collectModule(ctx context.Context, idx int, mod *model.Module, snap *model.Snapshot) []model.StyledLine {
	switch mod.Kind {
	case model.ModuleCPU:
		if mod.ShowPerCore {
			out := make([]model.StyledLine, 0, len(snap.CPUPerCore))
			for i, pct := range snap.CPUPerCore {
				out = append(out, model.Plain(fmt.Sprintf("  core %d: %.1f%%", i, pct)))
			}
			return out
		}
		return []model.StyledLine{model.Plain(fmt.Sprintf("%s: %.1f%%", mod.Label, snap.CPUUsage))}

	case model.ModuleMemory:
		return []model.StyledLine{model.Plain(fmt.Sprintf(
			"%s: %s/%s (%.0f%%)",
			mod.Label, humanize.IBytes(snap.MemUsed), humanize.IBytes(snap.MemTotal), snap.MemUsagePct,
		))}

	case model.ModuleDisk:
		for _, d := range snap.Disks {
			if d.MountPoint != mod.MountPoint {
				continue
			}
			used := d.TotalBytes - d.AvailableBytes
			return []model.StyledLine{model.Plain(fmt.Sprintf(
				"DISK %s: %s/%s", mod.MountPoint, humanize.IBytes(used), humanize.IBytes(d.TotalBytes),
			))}
		}
		return []model.StyledLine{model.Plain(fmt.Sprintf("DISK %s: not found", mod.MountPoint))}

	case model.ModuleNetwork:
		for _, n := range snap.Networks {
			if n.Interface != mod.Interface {
				continue
			}
			return []model.StyledLine{model.Plain(fmt.Sprintf(
				"NET %s: rx %s / tx %s", mod.Interface, humanize.IBytes(n.RxBytes), humanize.IBytes(n.TxBytes),
			))}
		}
		return []model.StyledLine{model.Plain(fmt.Sprintf("NET %s: not found", mod.Interface))}

	case model.ModuleUptime:
		h := snap.UptimeSeconds / 3600
		m := (snap.UptimeSeconds % 3600) / 60
		return []model.StyledLine{model.Plain(fmt.Sprintf("UPTIME: %dh %dm", h, m))}

	case model.ModuleHostname:
		return []model.StyledLine{model.Plain(fmt.Sprintf("HOST: %s", snap.Hostname))}

	case model.ModuleTime:
		return []model.StyledLine{model.Plain(time.Now().Format(mod.Format))}

	case model.ModuleText:
		return []model.StyledLine{model.Plain(mod.Content)}

	case model.ModuleExec:
		out, err := runExec(ctx, mod.Command, p.execTimeout)
		if err != nil {
			return []model.StyledLine{diagnostic("exec error: %v", err)}
		}
		if mod.Label != "" {
			out = mod.Label + ": " + out
		}
		return []model.StyledLine{model.Plain(out)}

	case model.ModuleScript:
		ref := p.scripts[idx]
		if ref.loadErr != nil {
			return []model.StyledLine{diagnostic("%s error: %v", mod.Backend, ref.loadErr)}
		}
		lines, err := ref.engine.Invoke(ctx, ref.handle, mod.Function, snap)
		if err != nil {
			return []model.StyledLine{diagnostic("%s error: %v", mod.Backend, err)}
		}
		return lines

	default:
		return []model.StyledLine{diagnostic("unknown module kind %q", mod.Kind)}
	}
}

func diagnostic(format string, args ...any) model.StyledLine {
	return model.Plain("[" + fmt.Sprintf(format, args...) + "]")
}

func scriptName(mod model.Module) string {
	if mod.Code != "" {
		return "inline:" + mod.Function
	}
	return mod.File
}
