// Package renderer drives a real browser engine so that client-side rendered
// content is present before links and markup are extracted.
package renderer

import (
	"context"
	"errors"
	"time"
)

// ErrSessionClosed is returned when a tab is requested from a session that has
// not been opened or has been closed.
var ErrSessionClosed = errors.New("renderer session closed")

// Session owns one browser process. It is not safe for concurrent use; the
// crawl controller is its only caller.
type Session interface {
	// Open launches the browser. Calling Open on an open session is a no-op.
	Open(ctx context.Context) error
	// NewTab opens a fresh tab for a single page render.
	NewTab(ctx context.Context) (Tab, error)
	// Restart tears the browser down and launches a new one.
	Restart(ctx context.Context) error
	// Close tears the browser down.
	Close() error
}

// Tab is a single page render. Tabs are never reused across URLs.
type Tab interface {
	// Navigate loads rawURL and returns once the DOM has been parsed.
	Navigate(ctx context.Context, rawURL string) error
	// WaitReady blocks until an element matching selector exists or timeout
	// elapses.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// Links returns the resolved href of every anchor on the page.
	Links(ctx context.Context) ([]string, error)
	// Markup returns the outer HTML of the document element.
	Markup(ctx context.Context) (string, error)
	// Status is the HTTP status of the main document, or 0 if unknown.
	Status() int
	// Close releases the tab.
	Close() error
}
