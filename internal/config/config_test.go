package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DataDir:                ".baton",
		MetricsPort:            12798,
		ShutdownTimeout:        "30s",
		TickInterval:           "1m",
		EscalateAfter:          3,
		QuorumFraction:         0.5,
		ScaleMax:               10,
		MinJustificationLength: 50,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
dataDir: "/var/lib/baton"
membersFile: "/etc/baton/members.yaml"
metricsPort: 8088
shutdownTimeout: "10s"
tickInterval: "30s"
escalateAfter: 5
quorumFraction: 0.66
scaleMax: 5
minJustificationLength: 100
adminIds: [1, 2]
stageDurations:
  nominations_open: "336h"
  evaluations: "168h"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-baton.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		DataDir:                "/var/lib/baton",
		MembersFile:            "/etc/baton/members.yaml",
		MetricsPort:            8088,
		ShutdownTimeout:        "10s",
		TickInterval:           "30s",
		EscalateAfter:          5,
		QuorumFraction:         0.66,
		ScaleMax:               5,
		MinJustificationLength: 100,
		AdminIDs:               []uint64{1, 2},
		StageDurations: map[string]string{
			"nominations_open": "336h",
			"evaluations":      "168h",
		},
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	// Without Config file
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
		DataDir:                ".baton",
		MetricsPort:            12798,
		ShutdownTimeout:        "30s",
		TickInterval:           "1m",
		EscalateAfter:          3,
		QuorumFraction:         0.5,
		ScaleMax:               10,
		MinJustificationLength: 50,
	}

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_InvalidQuorumFraction(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
quorumFraction: 1.5
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-quorum.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(tmpFile); err == nil {
		t.Error("expected error for quorumFraction outside (0, 1]")
	}
}

func TestLoad_InvalidStageDuration(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
stageDurations:
  nominations_open: "two weeks"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-durations.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(tmpFile); err == nil {
		t.Error("expected error for unparseable stage duration")
	}
}

func TestParsedStageDurations(t *testing.T) {
	resetGlobalConfig()
	globalConfig.StageDurations = map[string]string{
		"nominations_open": "336h",
	}

	parsed := globalConfig.ParsedStageDurations()
	if parsed["nominations_open"] != 336*time.Hour {
		t.Errorf(
			"expected 336h for nominations_open, got: %v",
			parsed["nominations_open"],
		)
	}
}
