package gmail

import (
	"encoding/base64"
	"strings"
	"testing"
)

const sampleMessage = "From: Contabilidad <conta@example.test>\r\n" +
	"To: reportes@example.test\r\n" +
	"Subject: Libro de ventas enero\r\n" +
	"Date: Thu, 02 Jan 2025 10:30:00 -0500\r\n" +
	"Message-ID: <abc-123@example.test>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Adjunto el libro.\r\n"

func TestFromRawReadsHeaders(t *testing.T) {
	msg, err := fromRaw("g-1", []byte(sampleMessage))
	if err != nil {
		t.Fatal(err)
	}
	if msg.MessageID != "<abc-123@example.test>" {
		t.Fatalf("message id %q", msg.MessageID)
	}
	if msg.Subject != "Libro de ventas enero" {
		t.Fatalf("subject %q", msg.Subject)
	}
	if msg.ReceivedAt != "2025-01-02T15:30:00Z" {
		t.Fatalf("received %q", msg.ReceivedAt)
	}
	if !strings.Contains(msg.From, "conta@example.test") {
		t.Fatalf("from %q", msg.From)
	}
}

func TestFromRawFallsBackToGmailID(t *testing.T) {
	raw := strings.Replace(sampleMessage, "Message-ID: <abc-123@example.test>\r\n", "", 1)
	msg, err := fromRaw("g-7", []byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if msg.MessageID != "g-7" {
		t.Fatalf("message id %q", msg.MessageID)
	}
}

func TestDecodeBase64URL(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString([]byte("hola?>"))
	got, err := decodeBase64URL(enc)
	if err != nil || string(got) != "hola?>" {
		t.Fatalf("got %q err=%v", got, err)
	}
}
