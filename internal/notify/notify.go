// Package notify sends the end-of-run notification.
//
// Notification is best effort: callers log a failed Notify and carry on.
package notify

import (
	"github.com/gen2brain/beeep"
)

// Notifier delivers a short message to the user.
type Notifier interface {
	Notify(title, message string) error
}

// Desktop shows a desktop notification.
type Desktop struct {
	// Icon is an optional path to an icon image.
	Icon string
}

// Notify implements Notifier.
func (d Desktop) Notify(title, message string) error {
	return beeep.Notify(title, message, d.Icon)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(title, message string) error {
	return nil
}

// Func adapts a function to Notifier.
type Func func(title, message string) error

// Notify implements Notifier.
func (f Func) Notify(title, message string) error {
	return f(title, message)
}
