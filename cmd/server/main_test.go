package main

import (
	"testing"
)

func TestBuildOverrides(t *testing.T) {
	t.Run("zero values mean unset", func(t *testing.T) {
		overrides := buildOverrides("", 0, "", false, nil)
		if overrides.Port != nil {
			t.Fatalf("expected nil port override")
		}
		if overrides.LogLevel != nil {
			t.Fatalf("expected nil log level override")
		}
		if overrides.Watch != nil {
			t.Fatalf("expected nil watch override")
		}
		if len(overrides.WatchPaths) != 0 {
			t.Fatalf("expected no watch paths")
		}
	})

	t.Run("explicit flags carried through", func(t *testing.T) {
		overrides := buildOverrides("conf.yaml", 3000, "debug", true, []string{"/srv/app"})
		if overrides.ConfigFile != "conf.yaml" {
			t.Fatalf("unexpected config file: %s", overrides.ConfigFile)
		}
		if overrides.Port == nil || *overrides.Port != 3000 {
			t.Fatalf("expected port override 3000")
		}
		if overrides.LogLevel == nil || *overrides.LogLevel != "debug" {
			t.Fatalf("expected log level override debug")
		}
		if overrides.Watch == nil || !*overrides.Watch {
			t.Fatalf("expected watch override true")
		}
		if len(overrides.WatchPaths) != 1 || overrides.WatchPaths[0] != "/srv/app" {
			t.Fatalf("unexpected watch paths: %v", overrides.WatchPaths)
		}
	})
}
