// Package shell defines the desktop-only native bridge the core calls but
// never depends on: notifications and backup handling are best-effort side
// effects.
package shell

import "context"

// Bridge is the native-OS collaborator surface.
type Bridge interface {
	Notify(title, body string) error
	CreateBackup(ctx context.Context, path string) error
	RestoreBackup(ctx context.Context, path string) error
}

// Noop is the default bridge used outside the desktop shell.
type Noop struct{}

func (Noop) Notify(string, string) error                 { return nil }
func (Noop) CreateBackup(context.Context, string) error  { return nil }
func (Noop) RestoreBackup(context.Context, string) error { return nil }
