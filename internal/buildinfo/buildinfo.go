package buildinfo

import "runtime/debug"

// Set with -ldflags "-X github.com/hungkimanh/gatest/internal/buildinfo.Version=..."
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info reports the link-time values, falling back to the VCS revision
// stamped by the Go toolchain when Commit is unset.
func Info() map[string]string {
	info := map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info["go"] = bi.GoVersion
		if info["commit"] == "" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info["commit"] = s.Value
				}
			}
		}
	}
	return info
}
