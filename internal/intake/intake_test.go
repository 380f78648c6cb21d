package intake

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ledgerrecon/internal/connectors"
	"ledgerrecon/internal/sheet"
	"ledgerrecon/internal/storage"
)

const ledgerCSV = "NRO;FECHA;VALOR\nA-1;02/01/2025;1.500,00\n"

func rawMessage(attachmentName, content string) string {
	return "From: conta@example.test\r\n" +
		"To: reportes@example.test\r\n" +
		"Subject: Libro\r\n" +
		"Message-ID: <m1@example.test>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Adjunto.\r\n" +
		"--XYZ\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=\"" + attachmentName + "\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		base64.StdEncoding.EncodeToString([]byte(content)) + "\r\n" +
		"--XYZ--\r\n"
}

func TestAttachmentsKeepsSupportedFiles(t *testing.T) {
	atts, err := Attachments([]byte(rawMessage("libro ventas.csv", ledgerCSV)))
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 1 || atts[0].Name != "libro ventas.csv" || string(atts[0].Content) != ledgerCSV {
		t.Fatalf("unexpected attachments %+v", atts)
	}

	atts, err = Attachments([]byte(rawMessage("foto.png", "png")))
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 0 {
		t.Fatalf("png must be ignored: %+v", atts)
	}
}

func TestExtractPendingWritesIntakeFiles(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "recon.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rawPath := filepath.Join(dir, "m1.eml")
	if err := os.WriteFile(rawPath, []byte(rawMessage("libro ventas.csv", ledgerCSV)), 0o644); err != nil {
		t.Fatal(err)
	}
	msg, err := db.UpsertMessage("imap", "<m1@example.test>", "Libro", "conta@example.test", "2025-01-03T10:00:00Z", "h", rawPath, connectors.StatusFetched)
	if err != nil {
		t.Fatal(err)
	}

	intakeDir := filepath.Join(dir, "intake")
	svc := NewService(db, intakeDir, sheet.Options{}, zerolog.Nop())
	res, err := svc.ExtractPending(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Messages != 1 || res.Files != 1 {
		t.Fatalf("result %+v", res)
	}

	stored, err := db.MustMessage(msg.Provider, msg.MessageID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != connectors.StatusExtracted {
		t.Fatalf("status %q", stored.Status)
	}

	path, err := Latest(intakeDir, "libro ventas*.csv")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "_libro_ventas.csv") {
		t.Fatalf("path %q", path)
	}
	if _, err := Latest(intakeDir, "auxiliar*"); err == nil {
		t.Fatal("expected no match")
	}
}
