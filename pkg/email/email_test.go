package email

import (
	"context"
	"strings"
	"testing"
)

func TestMessagesEscapeUsername(t *testing.T) {
	msg := accountCreatedMessage("<script>", "https://portal.example.com")
	if strings.Contains(msg.html, "<script>") {
		t.Fatalf("username must be escaped: %s", msg.html)
	}
	if !strings.Contains(msg.html, "&lt;script&gt;") {
		t.Fatalf("escaped username missing")
	}
	if !strings.Contains(msg.html, `href="https://portal.example.com"`) {
		t.Fatalf("portal link missing")
	}
}

func TestPasswordResetMessageHasNoPassword(t *testing.T) {
	msg := passwordResetMessage("alice", "https://portal.example.com")
	if msg.subject == "" || !strings.Contains(msg.html, "alice") {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if strings.Contains(strings.ToLower(msg.html), "temporary password:") {
		t.Fatalf("notice must never carry a password")
	}
}

func TestNoopNotifier(t *testing.T) {
	n := NewNoopNotifier()
	if err := n.SendAccountCreated(context.Background(), "a@b.com", "a"); err != nil {
		t.Fatalf("noop returned error: %v", err)
	}
	if err := n.SendPasswordReset(context.Background(), "a@b.com", "a"); err != nil {
		t.Fatalf("noop returned error: %v", err)
	}
}
