package domain

import "context"

// ResolvedMedia is the direct media location recovered from a share page
type ResolvedMedia struct {
	MediaURL string `json:"media_url"`
	Title    string `json:"title,omitempty"`
}

// ProgressFunc receives the bytes written so far and the expected total
// (-1 when the server sent no length).
type ProgressFunc func(written, total int64)

// Resolver turns a share page URL into a direct media URL
type Resolver interface {
	// Resolve fetches pageURL and extracts the media URL. The title is only
	// looked up when wantTitle is set.
	Resolve(ctx context.Context, pageURL string, wantTitle bool) (*ResolvedMedia, error)
}

// Transferer streams a remote media file to local storage
type Transferer interface {
	// Transfer writes mediaURL to destPath, creating the parent directory.
	// A failed transfer leaves no file behind. It returns the byte count written.
	Transfer(ctx context.Context, mediaURL, destPath string, progress ProgressFunc) (int64, error)
}

// Notifier announces finished downloads to the user
type Notifier interface {
	NotifyDownloadCompleted(download *Download)
	NotifyDownloadFailed(download *Download, err error)
	NotifyBatchFinished(total, succeeded, failed int)
}
