// Package attach is the attachment storage collaborator. The chat core
// never inspects file bytes; it only embeds the opaque refs returned here
// into messages.
package attach

import (
	"context"
	"io"
)

type (
	// File describes one stored attachment as returned to upload callers.
	File struct {
		Name string `json:"name"`
		Ref  string `json:"ref"`
		URL  string `json:"url"`
	}

	// Store puts raw bytes under a thread and hands back an opaque ref.
	Store interface {
		Put(ctx context.Context, threadID, name string, r io.Reader) (ref string, err error)
		Open(ctx context.Context, ref string) (io.ReadCloser, error)
		// URL returns a retrievable locator for a previously stored ref.
		URL(ref string) string
	}
)
