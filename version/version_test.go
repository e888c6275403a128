package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	v, c, b := Version, GitCommit, BuildTime
	return func() { Version, GitCommit, BuildTime = v, c, b }
}

func TestGetPrefersLinkTimeValues(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	GitCommit = "abc1234def"
	BuildTime = "2024-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.2.0" {
		t.Errorf("expected 1.2.0, got %q", info.Version)
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit truncated to abc1234, got %q", info.GitCommit)
	}
	if info.BuildTime != "2024-01-15T10:30:00Z" {
		t.Errorf("unexpected build time %q", info.BuildTime)
	}
}

func TestIsRelease(t *testing.T) {
	tests := []struct {
		info Info
		want bool
	}{
		{Info{Version: "dev"}, false},
		{Info{Version: "1.0.0"}, true},
		{Info{Version: "1.0.0", Dirty: true}, false},
		{Info{Version: "1.0.0-dirty"}, false},
	}
	for _, tc := range tests {
		if got := tc.info.IsRelease(); got != tc.want {
			t.Errorf("%+v.IsRelease() = %v, want %v", tc.info, got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	if got := (Info{Version: "dev"}).String(); got != "dev" {
		t.Errorf("expected bare version, got %q", got)
	}

	got := Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true, BuildTime: "2024-01-15", GoVersion: "go1.25.0"}.String()
	for _, want := range []string{"1.0.0", "abc1234-dirty", "built 2024-01-15", "go1.25.0"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}
