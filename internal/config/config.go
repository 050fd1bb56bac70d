package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"waysky/internal/model"
	"waysky/internal/render"
)

type Config struct {
	General General        `toml:"general"`
	Window  Window         `toml:"window"`
	Modules []ModuleConfig `toml:"modules"`
}

type General struct {
	UpdateIntervalMS uint64  `toml:"update_interval_ms"`
	FontSize         float64 `toml:"font_size"`
	FGColor          string  `toml:"fg_color"`
	BGColor          string  `toml:"bg_color"`
	ScriptsDir       string  `toml:"scripts_dir,omitempty"`
	ExecTimeoutMS    uint64  `toml:"exec_timeout_ms"`
	ScriptTimeoutMS  uint64  `toml:"script_timeout_ms"`
	LogLevel         string  `toml:"log_level"`
	LogJSON          bool    `toml:"log_json"`
	OnDraw           *OnDraw `toml:"on_draw,omitempty"`
}

// OnDraw configures the once-per-frame post-processing hook.
type OnDraw struct {
	Backend  string `toml:"backend"`
	File     string `toml:"file"`
	Function string `toml:"function,omitempty"`
}

type Window struct {
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	Anchor string `toml:"anchor"`
	Layer  string `toml:"layer"`
}

// ModuleConfig is the on-disk module table: a type discriminator plus the
// union of every variant's fields. BuildModules maps it onto the closed
// variant set and rejects anything malformed.
type ModuleConfig struct {
	Type        string           `toml:"type"`
	Label       string           `toml:"label,omitempty"`
	ShowPerCore bool             `toml:"show_per_core,omitempty"`
	MountPoint  string           `toml:"mount_point,omitempty"`
	Interface   string           `toml:"interface,omitempty"`
	Format      string           `toml:"format,omitempty"`
	Content     string           `toml:"content,omitempty"`
	Command     string           `toml:"command,omitempty"`
	Backend     string           `toml:"backend,omitempty"`
	Function    string           `toml:"function,omitempty"`
	Code        string           `toml:"code,omitempty"`
	File        string           `toml:"file,omitempty"`
	Style       *model.LineStyle `toml:"style,omitempty"`
}

const defaultTimeFormat = "2006-01-02 15:04:05"

var validAnchors = map[string]bool{
	"top-left": true, "top-right": true, "bottom-left": true, "bottom-right": true,
}

var validLayers = map[string]bool{
	"background": true, "bottom": true, "top": true, "overlay": true,
}

func Default() Config {
	return Config{
		General: General{
			UpdateIntervalMS: 1000,
			FontSize:         12,
			FGColor:          "#ffffff",
			BGColor:          "#000000aa",
			ExecTimeoutMS:    5000,
			ScriptTimeoutMS:  5000,
			LogLevel:         "info",
		},
		Window: Window{
			X:      20,
			Y:      40,
			Width:  320,
			Height: 600,
			Anchor: "top-right",
			Layer:  "bottom",
		},
		Modules: []ModuleConfig{
			{Type: "hostname"},
			{Type: "uptime"},
			{Type: "time", Format: defaultTimeFormat},
			{Type: "cpu", Label: "CPU"},
			{Type: "memory", Label: "MEM"},
			{Type: "disk", MountPoint: "/"},
		},
	}
}

func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "waysky", "config.toml")
}

// Load reads the TOML config at path (or WAYSKY_CONFIG, or the XDG default),
// applies env overrides, and validates. A missing file yields the defaults;
// a malformed file is a startup error.
func Load(path string) (Config, error) {
	if path == "" {
		path = env("WAYSKY_CONFIG", DefaultPath())
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// run on defaults
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.General.LogLevel = strings.ToLower(env("WAYSKY_LOG_LEVEL", cfg.General.LogLevel))
	cfg.General.LogJSON = envBool("WAYSKY_LOG_JSON", cfg.General.LogJSON)
	cfg.General.UpdateIntervalMS = envUint("WAYSKY_UPDATE_INTERVAL", cfg.General.UpdateIntervalMS)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.General.UpdateIntervalMS == 0 {
		return errors.New("general.update_interval_ms must be positive")
	}
	if c.General.FontSize <= 0 {
		return errors.New("general.font_size must be positive")
	}
	if _, err := render.ParseHexColor(c.General.FGColor); err != nil {
		return fmt.Errorf("general.fg_color: %w", err)
	}
	if _, err := render.ParseHexColor(c.General.BGColor); err != nil {
		return fmt.Errorf("general.bg_color: %w", err)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.New("window.width and window.height must be positive")
	}
	if !validAnchors[c.Window.Anchor] {
		return fmt.Errorf("window.anchor %q: want one of top-left, top-right, bottom-left, bottom-right", c.Window.Anchor)
	}
	if !validLayers[c.Window.Layer] {
		return fmt.Errorf("window.layer %q: want one of background, bottom, top, overlay", c.Window.Layer)
	}
	if hook := c.General.OnDraw; hook != nil {
		if hook.Backend == "" {
			return errors.New("general.on_draw.backend is required")
		}
		if hook.File == "" {
			return errors.New("general.on_draw.file is required")
		}
	}
	if _, err := c.BuildModules(); err != nil {
		return err
	}
	return nil
}

// BuildModules maps the config tables onto the closed module variant set,
// applying per-variant defaults and resolving script paths. Unknown
// discriminators and missing required fields are rejected by field name.
func (c Config) BuildModules() ([]model.Module, error) {
	out := make([]model.Module, 0, len(c.Modules))
	for i, mc := range c.Modules {
		if mc.Style != nil {
			if err := validateStyle(*mc.Style); err != nil {
				return nil, fmt.Errorf("modules[%d].style: %w", i, err)
			}
		}

		mod := model.Module{Style: mc.Style}
		switch mc.Type {
		case "cpu":
			mod.Kind = model.ModuleCPU
			mod.Label = defaultString(mc.Label, "CPU")
			mod.ShowPerCore = mc.ShowPerCore
		case "memory":
			mod.Kind = model.ModuleMemory
			mod.Label = defaultString(mc.Label, "MEM")
		case "disk":
			mod.Kind = model.ModuleDisk
			mod.MountPoint = defaultString(mc.MountPoint, "/")
		case "network":
			mod.Kind = model.ModuleNetwork
			mod.Interface = defaultString(mc.Interface, "eth0")
		case "uptime":
			mod.Kind = model.ModuleUptime
		case "hostname":
			mod.Kind = model.ModuleHostname
		case "time":
			mod.Kind = model.ModuleTime
			mod.Format = defaultString(mc.Format, defaultTimeFormat)
		case "text":
			if mc.Content == "" {
				return nil, fmt.Errorf("modules[%d]: text module requires content", i)
			}
			mod.Kind = model.ModuleText
			mod.Content = mc.Content
		case "exec":
			if mc.Command == "" {
				return nil, fmt.Errorf("modules[%d]: exec module requires command", i)
			}
			mod.Kind = model.ModuleExec
			mod.Command = mc.Command
			mod.Label = mc.Label
		case "script":
			if mc.Backend == "" {
				return nil, fmt.Errorf("modules[%d]: script module requires backend", i)
			}
			if mc.Function == "" {
				return nil, fmt.Errorf("modules[%d]: script module requires function", i)
			}
			if (mc.Code == "") == (mc.File == "") {
				return nil, fmt.Errorf("modules[%d]: script module requires exactly one of code or file", i)
			}
			mod.Kind = model.ModuleScript
			mod.Backend = mc.Backend
			mod.Function = mc.Function
			mod.Code = mc.Code
			if mc.File != "" {
				mod.File = c.ResolveScriptPath(mc.File)
			}
		default:
			return nil, fmt.Errorf("modules[%d]: unknown type %q", i, mc.Type)
		}
		out = append(out, mod)
	}
	return out, nil
}

func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.General.UpdateIntervalMS) * time.Millisecond
}

func (c Config) ExecTimeout() time.Duration {
	return time.Duration(c.General.ExecTimeoutMS) * time.Millisecond
}

func (c Config) ScriptTimeout() time.Duration {
	return time.Duration(c.General.ScriptTimeoutMS) * time.Millisecond
}

func (c Config) ScriptsDir() string {
	if c.General.ScriptsDir != "" {
		return expandHome(c.General.ScriptsDir)
	}
	return filepath.Join(xdg.ConfigHome, "waysky", "scripts")
}

// ResolveScriptPath expands ~ and resolves relative paths against the
// scripts directory.
func (c Config) ResolveScriptPath(path string) string {
	path = expandHome(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ScriptsDir(), path)
}

// DefaultTOML renders the default configuration, for -default-config.
func DefaultTOML() string {
	data, err := toml.Marshal(Default())
	if err != nil {
		return ""
	}
	return string(data)
}

func validateStyle(style model.LineStyle) error {
	if style.FGColor != "" {
		if _, err := render.ParseHexColor(style.FGColor); err != nil {
			return fmt.Errorf("fg_color: %w", err)
		}
	}
	if style.BGColor != "" {
		if _, err := render.ParseHexColor(style.BGColor); err != nil {
			return fmt.Errorf("bg_color: %w", err)
		}
	}
	if style.FontSize < 0 {
		return errors.New("font_size must not be negative")
	}
	return nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint(key string, fallback uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return u
}
