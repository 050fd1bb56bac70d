package model

type ModuleKind string

const (
	ModuleCPU      ModuleKind = "cpu"
	ModuleMemory   ModuleKind = "memory"
	ModuleDisk     ModuleKind = "disk"
	ModuleNetwork  ModuleKind = "network"
	ModuleUptime   ModuleKind = "uptime"
	ModuleHostname ModuleKind = "hostname"
	ModuleTime     ModuleKind = "time"
	ModuleText     ModuleKind = "text"
	ModuleExec     ModuleKind = "exec"
	ModuleScript   ModuleKind = "script"
)

// Module is one configured content producer. Kind selects the variant; the
// remaining fields are variant-specific and validated at load time. The
// module list is read-only after startup and its declaration order is the
// permanent rendering order.
type Module struct {
	Kind ModuleKind

	// cpu, memory, exec
	Label string
	// cpu
	ShowPerCore bool
	// disk
	MountPoint string
	// network
	Interface string
	// time (Go reference layout)
	Format string
	// text
	Content string
	// exec
	Command string
	// script
	Backend  string
	Function string
	Code     string
	File     string

	// Applied to returned lines that carry no style of their own.
	Style *LineStyle
}
