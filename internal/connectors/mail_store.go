package connectors

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"ledgerrecon/internal"
	"ledgerrecon/internal/sheet"
	"ledgerrecon/internal/storage"
)

// MailStoreService keeps each raw message once on disk, named by its
// content hash. Messages without a readable sheet attachment are recorded
// as skipped so intake never opens them.
type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

type StoredMessage struct {
	Message internal.IntakeMessage
	Sheets  []string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (StoredMessage, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return StoredMessage{}, err
	}
	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return StoredMessage{}, err
		}
	}

	sheets, parsed := sheetAttachments(msg.Raw)
	status := StatusFetched
	if parsed && len(sheets) == 0 {
		status = StatusSkipped
	}
	row, err := s.db.UpsertMessage(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, status)
	if err != nil {
		return StoredMessage{}, err
	}
	return StoredMessage{Message: row, Sheets: sheets}, nil
}

// sheetAttachments names the attachments sheet readers accept. parsed is
// false when the MIME structure cannot be read; such messages stay pending
// and intake records the failure.
func sheetAttachments(raw []byte) (names []string, parsed bool) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	for _, group := range [][]*enmime.Part{env.Attachments, env.Inlines, env.OtherParts} {
		for _, p := range group {
			name := strings.TrimSpace(p.FileName)
			if name == "" || len(p.Content) == 0 {
				continue
			}
			if _, err := sheet.Kind(name); err == nil {
				names = append(names, name)
			}
		}
	}
	return names, true
}
