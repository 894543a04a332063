package utils

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// VersionConfig holds current version requirements
type VersionConfig struct {
	CurrentStable string
	MinSupported  string
	Deprecated    string
}

var DefaultVersionConfig = VersionConfig{
	CurrentStable: "0.8.0", // Latest stable version
	MinSupported:  "0.7.3", // Minimum supported version
	Deprecated:    "0.7.2", // Versions below this are deprecated
}

// NormalizeVersion drops everything after the first dash ("0.8.0-trynet.2" -> "0.8.0")
// and surrounding whitespace.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.Index(v, "-"); i >= 0 {
		v = v[:i]
	}
	return v
}

// CheckVersionStatus determines if a node version needs upgrading
func CheckVersionStatus(nodeVersion string, config *VersionConfig) (status string, needsUpgrade bool, severity string) {
	if config == nil {
		config = &DefaultVersionConfig
	}

	nodeVersion = strings.TrimPrefix(NormalizeVersion(nodeVersion), "v")

	nodeVer, err := version.NewVersion(nodeVersion)
	if err != nil {
		return "unknown", false, "info"
	}

	current, _ := version.NewVersion(config.CurrentStable)
	minSupported, _ := version.NewVersion(config.MinSupported)
	deprecated, _ := version.NewVersion(config.Deprecated)

	if nodeVer.LessThan(deprecated) {
		return "deprecated", true, "critical"
	}

	if nodeVer.LessThan(minSupported) {
		return "outdated", true, "warning"
	}

	if nodeVer.LessThan(current) {
		return "outdated", true, "info"
	}

	return "current", false, "none"
}

// NewerVersion reports whether a sorts above b. Parseable versions sort
// above unparseable ones; two unparseable strings compare lexically.
func NewerVersion(a, b string) bool {
	va, errA := version.NewVersion(strings.TrimPrefix(a, "v"))
	vb, errB := version.NewVersion(strings.TrimPrefix(b, "v"))
	switch {
	case errA == nil && errB == nil:
		if va.Equal(vb) {
			return a > b
		}
		return va.GreaterThan(vb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a > b
	}
}
