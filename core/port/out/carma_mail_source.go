// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"

	"carma_server/core/domain"
)

// MailSource yields raw message records from the mailbox provider.
// Implementations return bodies as fetched; normalization happens in the inbox service.
type MailSource interface {
	FetchRecent(ctx context.Context, maxCount int) ([]domain.Message, error)
	FetchAttachments(ctx context.Context, messageID string) ([]domain.Attachment, error)
}
