package main

import (
	"path/filepath"
	"testing"

	"switchboard/internal/config"
	"switchboard/internal/prefs"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCommand()
	want := []string{"platforms", "models", "resolve", "use", "overrides", "credentials", "serve", "version"}
	have := map[string]bool{}
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestBuildContainerWiresObservability(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Store.Path = filepath.Join(base, "store.json")
	cfg.Logging.File = ""

	container, err := BuildContainer(cfg)
	if err != nil {
		t.Fatalf("BuildContainer: %v", err)
	}
	defer container.Close()

	if container.Tracer == nil {
		t.Fatal("container built without a tracer provider")
	}
	if container.Coordinator == nil || container.Metrics == nil {
		t.Fatal("container missing engine pieces")
	}
}

func TestSessionFlagValidation(t *testing.T) {
	cli := &CLI{tabID: 4, iface: "sidepanel", thinking: true}
	session, err := cli.session()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if session.TabID != 4 || session.Interface != prefs.InterfaceSidepanel || !session.UseThinkingMode {
		t.Fatalf("session = %+v", session)
	}

	cli.iface = "toolbar"
	if _, err := cli.session(); err == nil {
		t.Fatalf("expected error for unknown interface")
	}
}
