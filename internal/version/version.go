package version

// Build information, set with -ldflags at release time
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// GetFullVersion returns detailed version information
func GetFullVersion() string {
	return "tgupbench " + Version + " (commit: " + Commit + ", built: " + BuildDate + ")"
}
