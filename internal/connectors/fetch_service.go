package connectors

import (
	"context"

	"ledgerrecon/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
	Sheets  int
	Skipped int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

// FetchAndStore saves new messages as fetched. Messages seen in an earlier
// cycle keep their status so their attachments are not extracted twice.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		existing, err := s.db.GetMessage(msg.Provider, msg.MessageID)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Known++
			continue
		}
		stored, err := s.store.Store(msg)
		if err != nil {
			return result, err
		}
		result.Stored++
		result.Sheets += len(stored.Sheets)
		if stored.Message.Status == StatusSkipped {
			result.Skipped++
		}
	}
	return result, nil
}
