package intake

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/rs/zerolog"

	"ledgerrecon/internal"
	"ledgerrecon/internal/connectors"
	"ledgerrecon/internal/sheet"
	"ledgerrecon/internal/storage"
)

type Attachment struct {
	Name    string
	Content []byte
}

// Attachments returns the parts of a raw message that carry a spreadsheet,
// CSV, HTML export or PDF report, judged by file name.
func Attachments(raw []byte) ([]Attachment, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines)+len(env.OtherParts))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)
	parts = append(parts, env.OtherParts...)

	out := make([]Attachment, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p.FileName)
		if name == "" || len(p.Content) == 0 {
			continue
		}
		if _, err := sheet.Kind(name); err != nil {
			continue
		}
		out = append(out, Attachment{Name: name, Content: p.Content})
	}
	return out, nil
}

type Result struct {
	Messages int
	Files    int
	Skipped  int
	Failed   int
}

// Service moves attachments of fetched messages into the intake directory,
// where sources refer to them as intake:<pattern>.
type Service struct {
	db   *storage.DB
	dir  string
	opts sheet.Options
	log  zerolog.Logger
}

func NewService(db *storage.DB, dir string, opts sheet.Options, log zerolog.Logger) *Service {
	return &Service{db: db, dir: dir, opts: opts, log: log}
}

func (s *Service) ExtractPending(ctx context.Context, limit int) (Result, error) {
	pending, err := s.db.ListMessagesByStatus(connectors.StatusFetched, limit)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, err
	}

	var res Result
	for _, msg := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Messages++
		written, err := s.extract(msg)
		status := connectors.StatusExtracted
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("messageId", msg.MessageID).Msg("attachment intake failed")
			status = connectors.StatusFailed
			res.Failed++
		case written == 0:
			status = connectors.StatusSkipped
			res.Skipped++
		}
		res.Files += written
		if err := s.db.UpdateMessageStatus(msg.ID, status); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Service) extract(msg internal.IntakeMessage) (int, error) {
	raw, err := os.ReadFile(msg.RawRef)
	if err != nil {
		return 0, err
	}
	attachments, err := Attachments(raw)
	if err != nil {
		return 0, fmt.Errorf("parse message: %w", err)
	}

	received, err := time.Parse(time.RFC3339, msg.ReceivedAt)
	if err != nil {
		received = time.Now().UTC()
	}

	written := 0
	for _, att := range attachments {
		if _, err := sheet.Read(att.Name, att.Content, s.opts); err != nil {
			if errors.Is(err, internal.ErrUnsupportedSource) || errors.Is(err, internal.ErrEmptyGrid) {
				s.log.Debug().Str("attachment", att.Name).Err(err).Msg("attachment skipped")
				continue
			}
			return written, fmt.Errorf("read %s: %w", att.Name, err)
		}
		path := filepath.Join(s.dir, fileName(received, att))
		if err := os.WriteFile(path, att.Content, 0o644); err != nil {
			return written, err
		}
		_ = os.Chtimes(path, received, received)
		written++
	}
	return written, nil
}

// fileName keeps the original name last so intake patterns can match it.
func fileName(received time.Time, att Attachment) string {
	sum := sha256.Sum256(att.Content)
	return fmt.Sprintf("%s_%s_%s", received.UTC().Format("20060102T150405"), hex.EncodeToString(sum[:4]), sanitizeName(att.Name))
}

func sanitizeName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[len(out)-120:]
	}
	return out
}

// Latest returns the most recently received intake file whose original name
// matches pattern.
func Latest(dir, pattern string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	pattern = strings.ToLower(strings.ReplaceAll(pattern, " ", "_"))
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		original := originalName(e.Name())
		ok, err := filepath.Match(pattern, strings.ToLower(original))
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no intake file matches %q", pattern)
	}
	return best, nil
}

func originalName(stored string) string {
	parts := strings.SplitN(stored, "_", 3)
	if len(parts) == 3 {
		return parts[2]
	}
	return stored
}
