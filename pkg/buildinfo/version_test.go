package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetPrefersLdflags(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v1.2.3", "abc123", "2024-01-01T00:00:00Z"

	got := Get()
	if got.Version != "v1.2.3" || got.Commit != "abc123" || got.Date != "2024-01-01T00:00:00Z" {
		t.Errorf("Get() = %+v", got)
	}
	if got.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", got.GoVersion, runtime.Version())
	}
}

func TestTemplate(t *testing.T) {
	defer func(v string) { Version = v }(Version)
	Version = "v9.9.9"

	if s := Template(); !strings.HasPrefix(s, "{{.Name}} version v9.9.9\n") {
		t.Errorf("Template() = %q", s)
	}
	if s := String(); !strings.Contains(s, "version: v9.9.9") {
		t.Errorf("String() = %q", s)
	}
}
