package route

import (
	"fmt"
	"log"
)

const commandPrefix = "/command/"

// Command is a privileged device action triggered by a GET URL.
type Command uint8

const (
	CmdDeleteAll Command = iota + 1
	CmdReboot
)

func (c Command) String() string {
	switch c {
	case CmdDeleteAll:
		return "deleteAll"
	case CmdReboot:
		return "reboot"
	default:
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
}

// commands maps exact URL paths to commands. The short forms are what older
// launcher pages link to.
var commands = map[string]Command{
	"/command/deleteAll": CmdDeleteAll,
	"/deleteAll":         CmdDeleteAll,
	"/command/reboot":    CmdReboot,
	"/close.html":        CmdReboot,
}

// LookupCommand reports the command bound to urlPath, if any.
func LookupCommand(urlPath string) (Command, bool) {
	c, ok := commands[urlPath]
	return c, ok
}

// Result is what a command produced. Terminate asks the caller to close the
// server and reboot once the response is on the wire.
type Result struct {
	Message   string
	Terminate bool
}

// Run executes cmd. Only CmdDeleteAll touches storage; CmdReboot merely
// flags termination.
func (r *Router) Run(cmd Command) (Result, error) {
	switch cmd {
	case CmdDeleteAll:
		for _, name := range r.logFiles {
			removed, err := r.data.Remove(name)
			if err != nil {
				return Result{}, fmt.Errorf("delete %s: %w", name, err)
			}
			if removed {
				log.Printf("[command] deleted %s", r.Display(Location{Root: DataRoot, Name: name}))
			}
		}
		return Result{Message: "Delete all the logs successfully!"}, nil
	case CmdReboot:
		return Result{Message: "Reboot!", Terminate: true}, nil
	default:
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownCommand, cmd)
	}
}
