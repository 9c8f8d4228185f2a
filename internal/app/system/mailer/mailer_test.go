package mailer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dalemusser/fiiportal/internal/app/system/mailer"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WithoutKeyLogsOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := mailer.New(mailer.Config{}, zap.New(core))

	if _, ok := s.(*mailer.LogSender); !ok {
		t.Fatalf("sender: got %T, want *mailer.LogSender", s)
	}
	err := s.Send(context.Background(), mailer.Email{To: "a@b.com", Subject: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if logs.FilterMessage("email (not sent)").Len() != 1 {
		t.Error("expected the email to be logged")
	}
}

func TestNew_WithKeyUsesResend(t *testing.T) {
	s := mailer.New(mailer.Config{APIKey: "re_test", From: "no-reply@fii.example"}, zap.NewNop())
	if _, ok := s.(*mailer.Resend); !ok {
		t.Fatalf("sender: got %T, want *mailer.Resend", s)
	}
}

func TestLogSender_RejectsEmptyRecipient(t *testing.T) {
	s := &mailer.LogSender{Log: zap.NewNop()}
	if err := s.Send(context.Background(), mailer.Email{Subject: "x"}); err == nil {
		t.Error("expected error for empty recipient")
	}
}

func TestBuildContentEmail(t *testing.T) {
	e := mailer.BuildContentEmail("m@x.com", mailer.ContentEmailData{
		SiteName: "FII Portal",
		Kind:     "report",
		Title:    "Carteira <Março>",
		Link:     "https://fii.example/relatorios/1",
		Name:     "Ana",
	})

	if e.To != "m@x.com" {
		t.Errorf("To: got %q", e.To)
	}
	if !strings.Contains(e.Subject, "novo relatório") {
		t.Errorf("Subject: got %q", e.Subject)
	}
	if !strings.Contains(e.TextBody, "https://fii.example/relatorios/1") {
		t.Error("text body should contain the link")
	}
	if strings.Contains(e.HTMLBody, "<Março>") {
		t.Error("html body must escape the title")
	}
	if !strings.Contains(e.HTMLBody, "Carteira &lt;Março&gt;") {
		t.Error("html body should contain the escaped title")
	}
}
