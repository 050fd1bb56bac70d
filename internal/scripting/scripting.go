// Package scripting hosts user-supplied script callbacks for the overlay.
// Backends are registered once at startup; a module referencing an absent
// backend is a configuration error, never a per-frame branch. Script failures
// never propagate past the host as anything but an error value.
package scripting

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"waysky/internal/model"
)

// Source is a script to compile: inline code or a file path, never both.
type Source struct {
	Name string
	Code string
	Path string
}

// Handle is a backend-specific compiled script, opaque to callers.
type Handle any

// Engine executes named entry points against a snapshot. Implementations are
// interchangeable from the pipeline's perspective.
type Engine interface {
	Name() string
	Load(src Source) (Handle, error)
	Invoke(ctx context.Context, h Handle, fn string, snap *model.Snapshot) ([]model.StyledLine, error)
	InvokeHook(ctx context.Context, h Handle, fn string, lines []model.StyledLine, snap *model.Snapshot) ([]model.StyledLine, error)
}

// Registry is the set of backends available in this build, assembled at
// startup.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

func (r *Registry) Get(name string) (Engine, error) {
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("scripting backend %q is not available (have: %s)", name, strings.Join(r.Names(), ", "))
	}
	return e, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshotValues flattens the snapshot into the documented script-context
// field names. Both backends bind these as globals before every invocation.
func snapshotValues(s *model.Snapshot) map[string]any {
	perCore := make([]any, len(s.CPUPerCore))
	for i, v := range s.CPUPerCore {
		perCore[i] = v
	}

	disks := make([]any, len(s.Disks))
	for i, d := range s.Disks {
		disks[i] = map[string]any{
			"mount_point":     d.MountPoint,
			"total_bytes":     d.TotalBytes,
			"available_bytes": d.AvailableBytes,
		}
	}

	networks := make([]any, len(s.Networks))
	for i, n := range s.Networks {
		networks[i] = map[string]any{
			"interface": n.Interface,
			"rx_bytes":  n.RxBytes,
			"tx_bytes":  n.TxBytes,
		}
	}

	return map[string]any{
		"cpu_usage":      s.CPUUsage,
		"cpu_count":      s.CPUCount,
		"cpu_per_core":   perCore,
		"mem_used":       s.MemUsed,
		"mem_total":      s.MemTotal,
		"mem_usage_pct":  s.MemUsagePct,
		"swap_used":      s.SwapUsed,
		"swap_total":     s.SwapTotal,
		"hostname":       s.Hostname,
		"uptime_seconds": s.UptimeSeconds,
		"os_name":        s.OSName,
		"kernel_version": s.KernelVersion,
		"disks":          disks,
		"networks":       networks,
	}
}

// linesToValue converts a frame's line list into the shape handed to an
// on-draw hook: a sequence of {text, fg_color?, bg_color?, font_size?}.
func linesToValue(lines []model.StyledLine) []any {
	out := make([]any, len(lines))
	for i, line := range lines {
		m := map[string]any{"text": line.Text}
		if line.Style.FGColor != "" {
			m["fg_color"] = line.Style.FGColor
		}
		if line.Style.BGColor != "" {
			m["bg_color"] = line.Style.BGColor
		}
		if line.Style.FontSize > 0 {
			m["font_size"] = line.Style.FontSize
		}
		out[i] = m
	}
	return out
}

// linesFromValue decodes a script return value per the documented contract: a
// string, a {text, fg_color?, bg_color?, font_size?} value, or a sequence of
// either. Each sequence element becomes one line, order preserved.
func linesFromValue(v any) ([]model.StyledLine, error) {
	if arr, ok := v.([]any); ok {
		out := make([]model.StyledLine, 0, len(arr))
		for i, el := range arr {
			lines, err := lineFromScalar(el)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, lines...)
		}
		return out, nil
	}
	return lineFromScalar(v)
}

// hookLinesFromValue is stricter: a hook must return a sequence, which
// replaces the frame's line list outright.
func hookLinesFromValue(v any) ([]model.StyledLine, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("hook must return a sequence of lines, got %T", v)
	}
	out := make([]model.StyledLine, 0, len(arr))
	for i, el := range arr {
		lines, err := lineFromScalar(el)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, lines...)
	}
	return out, nil
}

func lineFromScalar(v any) ([]model.StyledLine, error) {
	switch t := v.(type) {
	case string:
		return splitPlain(t), nil
	case map[string]any:
		text, ok := t["text"].(string)
		if !ok {
			return nil, fmt.Errorf("structured line is missing a string %q key", "text")
		}
		style := model.LineStyle{}
		if fg, ok := t["fg_color"].(string); ok {
			style.FGColor = fg
		}
		if bg, ok := t["bg_color"].(string); ok {
			style.BGColor = bg
		}
		if fs, ok := numberValue(t["font_size"]); ok {
			style.FontSize = fs
		}
		return []model.StyledLine{model.Styled(text, style)}, nil
	case nil:
		return nil, fmt.Errorf("script returned nil")
	case bool, int, int64, uint64, float64:
		return []model.StyledLine{model.Plain(fmt.Sprintf("%v", t))}, nil
	default:
		return nil, fmt.Errorf("unsupported script return type %T", v)
	}
}

// splitPlain turns a possibly multi-line string into one plain line per text
// row, matching how module output is displayed.
func splitPlain(s string) []model.StyledLine {
	s = strings.TrimRight(s, "\n")
	parts := strings.Split(s, "\n")
	out := make([]model.StyledLine, len(parts))
	for i, p := range parts {
		out[i] = model.Plain(p)
	}
	return out
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case uint64:
		return float64(t), true
	default:
		return 0, false
	}
}
