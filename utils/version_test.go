package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "0.8.0", NormalizeVersion("0.8.0-trynet.20251212"))
	assert.Equal(t, "0.8.0", NormalizeVersion(" 0.8.0 "))
	assert.Equal(t, "v1.2.3", NormalizeVersion("v1.2.3-rc1-extra"))
	assert.Equal(t, "", NormalizeVersion("-dirty"))
	assert.Equal(t, "", NormalizeVersion(""))
}

func TestCheckVersionStatus(t *testing.T) {
	tests := []struct {
		version      string
		wantStatus   string
		wantUpgrade  bool
		wantSeverity string
	}{
		{"0.8.0", "current", false, "none"},
		{"0.8.0-trynet.1", "current", false, "none"},
		{"v0.9.1", "current", false, "none"},
		{"0.7.3", "outdated", true, "info"},
		{"0.7.2", "outdated", true, "warning"},
		{"0.6.9", "deprecated", true, "critical"},
		{"unknown", "unknown", false, "info"},
		{"", "unknown", false, "info"},
	}

	for _, tt := range tests {
		status, upgrade, severity := CheckVersionStatus(tt.version, nil)
		assert.Equal(t, tt.wantStatus, status, tt.version)
		assert.Equal(t, tt.wantUpgrade, upgrade, tt.version)
		assert.Equal(t, tt.wantSeverity, severity, tt.version)
	}
}

func TestNewerVersion(t *testing.T) {
	assert.True(t, NewerVersion("0.10.0", "0.9.0"))
	assert.False(t, NewerVersion("0.7.0", "0.8.0"))
	assert.True(t, NewerVersion("0.8.0", "garbage"))
	assert.False(t, NewerVersion("garbage", "0.8.0"))
	assert.True(t, NewerVersion("b", "a"))
}
