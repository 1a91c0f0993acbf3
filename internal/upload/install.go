package upload

import (
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// ScriptWriter is the part of the data root an Installer needs.
type ScriptWriter interface {
	WriteFile(name string, data []byte) error
}

// Installer persists an extracted script as the device's next boot script.
type Installer struct {
	store ScriptWriter
	name  string

	// one installer client at a time; concurrent installs are last-writer-wins
	mu sync.Mutex
}

// Receipt describes a completed install.
type Receipt struct {
	Name    string
	Size    int
	Blake2b string
}

func NewInstaller(store ScriptWriter, name string) *Installer {
	return &Installer{store: store, name: name}
}

func (in *Installer) Name() string { return in.name }

// Install overwrites the script with data. Empty data is refused so a broken
// upload never leaves the device without a script.
func (in *Installer) Install(data []byte) (Receipt, error) {
	if len(data) == 0 {
		return Receipt{}, ErrEmptyFile
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.store.WriteFile(in.name, data); err != nil {
		return Receipt{}, fmt.Errorf("install %s: %w", in.name, err)
	}
	sum := blake2b.Sum256(data)
	return Receipt{
		Name:    in.name,
		Size:    len(data),
		Blake2b: hex.EncodeToString(sum[:]),
	}, nil
}
