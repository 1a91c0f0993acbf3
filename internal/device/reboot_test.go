package device

import (
	"context"
	"os/exec"
	"testing"
)

func TestFromArgv(t *testing.T) {
	if _, ok := FromArgv(nil).(Exit); !ok {
		t.Fatalf("expected Exit rebooter for empty argv")
	}
	r, ok := FromArgv([]string{"systemctl", "reboot"}).(Exec)
	if !ok {
		t.Fatalf("expected Exec rebooter")
	}
	if r.Argv[0] != "systemctl" {
		t.Fatalf("argv = %v", r.Argv)
	}
}

func TestExecRunsCommand(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("no true binary")
	}
	if err := (Exec{Argv: []string{"true"}}).Reboot(context.Background()); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	if err := (Exec{}).Reboot(context.Background()); err == nil {
		t.Fatalf("expected error for empty command")
	}
}
