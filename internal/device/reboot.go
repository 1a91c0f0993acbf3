package device

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"time"
)

// Rebooter restarts the device. It is called once, after the HTTP server has
// stopped serving.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

// RebooterFunc adapts a plain function.
type RebooterFunc func(ctx context.Context) error

func (f RebooterFunc) Reboot(ctx context.Context) error { return f(ctx) }

// Exec runs an external command such as ["systemctl", "reboot"].
type Exec struct {
	Argv    []string
	Timeout time.Duration
}

func (e Exec) Reboot(ctx context.Context) error {
	if len(e.Argv) == 0 {
		return errors.New("reboot: empty command")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, e.Argv[0], e.Argv[1:]...)
	cmd.Stdout = log.Writer()
	cmd.Stderr = log.Writer()
	return cmd.Run()
}

// Exit terminates the process with Code and leaves the restart to whatever
// supervises it.
type Exit struct {
	Code int
}

func (e Exit) Reboot(context.Context) error {
	log.Printf("[device] exiting with code %d for restart", e.Code)
	os.Exit(e.Code)
	return nil
}

// FromArgv picks Exec when argv is set and Exit otherwise.
func FromArgv(argv []string) Rebooter {
	if len(argv) == 0 {
		return Exit{Code: 0}
	}
	return Exec{Argv: argv, Timeout: 30 * time.Second}
}
