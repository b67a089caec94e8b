// Package mail provides the narrow remote mailbox surface the audit needs:
// list message ids page by page, and fetch metadata for a single id. Two
// implementations exist, one backed by the Gmail API and one by IMAP.
package mail

import (
	"context"
	"errors"

	"github.com/huangsam/mailprune/internal/cache"
)

// ErrNoCredentials indicates no usable credential could be found during
// setup. Callers surface this as a user error instead of a stack trace.
var ErrNoCredentials = errors.New("no usable mail credentials")

// MetadataHeaders are the only headers the audit asks the remote service for.
var MetadataHeaders = []string{"From", "Subject", "Date"}

// ListPage is one page of a message id listing.
type ListPage struct {
	IDs           []string
	NextPageToken string
}

// Remote is a single client handle against the mail service. Handles are not
// safe for concurrent use; check one out of a Pool per unit of work.
type Remote interface {
	// List returns up to pageSize message ids matching query, newest first.
	// Pass the previous page's NextPageToken to continue; an empty
	// NextPageToken in the result means the listing is exhausted.
	List(ctx context.Context, query, pageToken string, pageSize int64) (ListPage, error)

	// GetMetadata fetches the metadata record for one message id.
	GetMetadata(ctx context.Context, id string) (*cache.Record, error)

	// Close releases the underlying connection, if any.
	Close() error
}
