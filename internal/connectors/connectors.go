package connectors

import (
	"context"

	"ledgerrecon/internal"
)

const (
	StatusFetched   = "fetched"
	StatusExtracted = "extracted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// MailConnector lists messages of a mailbox label that carry attachments,
// with their raw RFC 822 bytes.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
