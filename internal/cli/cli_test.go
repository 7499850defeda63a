package cli

import (
	"testing"
)

// TestNewRootCmd tests the root command wiring
func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd == nil {
		t.Fatal("NewRootCmd() returned nil")
	}

	if cmd.Use != "tessera [file ...]" {
		t.Errorf("Expected Use='tessera [file ...]', got '%s'", cmd.Use)
	}

	if cmd.Version == "" {
		t.Error("Version string is empty")
	}

	if cmd.RunE == nil {
		t.Error("RunE function is nil")
	}

	for _, flag := range []string{"config", "verbose"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Persistent flag --%s not registered", flag)
		}
	}
	if cmd.Flags().Lookup("automation") == nil {
		t.Error("Flag --automation not registered")
	}
}

// TestAddCommands tests subcommand registration
func TestAddCommands(t *testing.T) {
	cmd := NewRootCmd()
	AddCommands(cmd)

	want := map[string]bool{"status": false, "stop": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Subcommand %q not registered", name)
		}
	}
}

// TestStatusCmd tests the status command
func TestStatusCmd(t *testing.T) {
	cmd := newStatusCmd()
	if cmd == nil {
		t.Fatal("newStatusCmd() returned nil")
	}

	if cmd.Use != "status" {
		t.Errorf("Expected Use='status', got '%s'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description is empty")
	}

	if cmd.RunE == nil {
		t.Error("RunE function is nil")
	}
}

// TestStopCmd tests the stop command
func TestStopCmd(t *testing.T) {
	cmd := newStopCmd()
	if cmd == nil {
		t.Fatal("newStopCmd() returned nil")
	}

	if cmd.Use != "stop" {
		t.Errorf("Expected Use='stop', got '%s'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description is empty")
	}

	if cmd.RunE == nil {
		t.Error("RunE function is nil")
	}
}
