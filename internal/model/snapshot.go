package model

// Snapshot is a point-in-time capture of system metrics, taken once per frame
// and shared read-only by every module and script evaluated in that frame.
type Snapshot struct {
	CPUUsage   float64   `json:"cpu_usage"`
	CPUCount   uint64    `json:"cpu_count"`
	CPUPerCore []float64 `json:"cpu_per_core"`

	MemUsed     uint64  `json:"mem_used"`
	MemTotal    uint64  `json:"mem_total"`
	MemUsagePct float64 `json:"mem_usage_pct"`
	SwapUsed    uint64  `json:"swap_used"`
	SwapTotal   uint64  `json:"swap_total"`

	Hostname      string `json:"hostname"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	OSName        string `json:"os_name,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty"`

	Disks    []DiskInfo    `json:"disks"`
	Networks []NetworkInfo `json:"networks"`
}

type DiskInfo struct {
	MountPoint     string `json:"mount_point"`
	TotalBytes     uint64 `json:"total_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
}

type NetworkInfo struct {
	Interface string `json:"interface"`
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
}
