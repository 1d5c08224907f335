package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvMinIdentity, "")
	t.Setenv(EnvQueryColor, "")
	t.Setenv(EnvSubjectColor, "")
	t.Setenv(EnvLogLevel, "")

	env, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.DotenvLoaded {
		t.Errorf("DotenvLoaded = true for a missing file")
	}
	if env.MinIdentity != DefaultMinIdentity {
		t.Errorf("MinIdentity = %v, want %v", env.MinIdentity, DefaultMinIdentity)
	}
	if env.QueryColor != "green" || env.SubjectColor != "blue" {
		t.Errorf("colors = %s/%s, want green/blue", env.QueryColor, env.SubjectColor)
	}
	if env.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q", env.LogLevel)
	}
}

func TestLoadFromDotenv(t *testing.T) {
	t.Setenv(EnvMinIdentity, "")
	t.Setenv(EnvQueryColor, "")
	os.Unsetenv(EnvMinIdentity)
	os.Unsetenv(EnvQueryColor)

	path := filepath.Join(t.TempDir(), "test.env")
	data := EnvMinIdentity + "=75.5\n" + EnvQueryColor + "=red\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	env, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !env.DotenvLoaded {
		t.Errorf("DotenvLoaded = false")
	}
	if env.MinIdentity != 75.5 {
		t.Errorf("MinIdentity = %v, want 75.5", env.MinIdentity)
	}
	if env.QueryColor != "red" {
		t.Errorf("QueryColor = %q, want red", env.QueryColor)
	}
}

func TestLoadInvalidIdentity(t *testing.T) {
	t.Setenv(EnvMinIdentity, "high")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Errorf("Expected an error but got none")
	}
}
