package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestRenderWelcome(t *testing.T) {
	subject, content, err := renderWelcome(DefaultCopy(), "ana@example.com", "Ana Smith", true)
	if err != nil {
		t.Fatalf("render welcome: %v", err)
	}
	if subject != DefaultCopy().WelcomeSubject {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Hi Ana Smith", "ana@example.com", "QR code is attached"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected welcome content to contain %q", want)
		}
	}
}

func TestRenderEmailAlreadyUsedEscapesName(t *testing.T) {
	_, content, err := renderEmailAlreadyUsed(DefaultCopy(), "bob@example.com", "<script>Bob</script>")
	if err != nil {
		t.Fatalf("render email already used: %v", err)
	}
	if strings.Contains(content, "<script>") {
		t.Fatal("expected name to be HTML-escaped")
	}
	if !strings.Contains(content, "bob@example.com") {
		t.Fatal("expected content to mention the rejected address")
	}
}

func TestRenderConcurrentFirstUse(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := renderWelcome(DefaultCopy(), "a@b.c", "A", false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent render failed: %v", err)
	}
}

func TestParseCopyOverridesOnlySetFields(t *testing.T) {
	c, err := parseCopy(DefaultCopy(), []byte("welcome_subject: Kia ora\nfooter: \"\"\n"))
	if err != nil {
		t.Fatalf("parse copy: %v", err)
	}
	if c.WelcomeSubject != "Kia ora" {
		t.Fatalf("expected override subject, got %q", c.WelcomeSubject)
	}
	if c.Footer != DefaultCopy().Footer {
		t.Fatalf("expected default footer to survive, got %q", c.Footer)
	}
}

func TestParseCopyRejectsInvalidYAML(t *testing.T) {
	if _, err := parseCopy(DefaultCopy(), []byte("welcome_subject: [unterminated")); err == nil {
		t.Fatal("expected yaml error")
	}
}

func TestBrevoSenderPostsWelcomeWithAttachment(t *testing.T) {
	var got brevoEmailRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoSender("key-123", "hello@winetopia.co.nz", "Winetopia", DefaultCopy())
	sender.endpoint = srv.URL

	err := sender.SendWelcomeEmail(context.Background(), "ana@example.com", "Ana Smith", Attachment{
		Content: []byte("png"), FileName: "ticket.png", MIMEType: "image/png",
	})
	if err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if apiKey != "key-123" {
		t.Fatalf("expected api key header, got %q", apiKey)
	}
	if len(got.To) != 1 || got.To[0].Email != "ana@example.com" {
		t.Fatalf("unexpected recipients %+v", got.To)
	}
	if len(got.Attachment) != 1 || got.Attachment[0].Name != "ticket.png" {
		t.Fatalf("unexpected attachments %+v", got.Attachment)
	}
}

func TestBrevoSenderReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewBrevoSender("nope", "hello@winetopia.co.nz", "Winetopia", DefaultCopy())
	sender.endpoint = srv.URL

	err := sender.SendEmailAlreadyUsedEmail(context.Background(), "bob@example.com", "Bob")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "", "", "hello@winetopia.co.nz", "Winetopia", DefaultCopy())
	msg, err := sender.buildMessage("ana@example.com", "Subject", "<p>hi</p>", Attachment{
		Content: []byte("png"), FileName: "ticket.png", MIMEType: "image/png",
	})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if len(msg.GetAttachments()) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.GetAttachments()))
	}
}
