package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/wildrydes/dispatch/internal/cache"
	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/security/password"
	"github.com/wildrydes/dispatch/internal/token"
)

// captureSender records outgoing mail instead of delivering it.
type captureSender struct {
	to, subject, body string
	sends             int
}

func (c *captureSender) Send(to, subject, body string) error {
	c.to, c.subject, c.body = to, subject, body
	c.sends++
	return nil
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func newTestService(t *testing.T) (*Service, *captureSender) {
	t.Helper()
	ks, err := token.NewKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	sender := &captureSender{}
	svc := &Service{
		Store:     NewMemoryStore(),
		Codes:     cache.NewMemory("", time.Minute),
		Sender:    sender,
		Issuer:    token.NewIssuer("http://iss.example", ks),
		ClientApp: domain.ClientApp{ID: "wildrydes-web", Name: "WildRydes Web"},
		Policy:    password.Policy{MinLength: 8},
		VerifyTTL: time.Minute,
	}
	return svc, sender
}

func register(t *testing.T, svc *Service, sender *captureSender, email, pass string) (user *domain.User, code string) {
	t.Helper()
	u, err := svc.Register(context.Background(), email, pass)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	m := codeRe.FindStringSubmatch(sender.body)
	if m == nil {
		t.Fatalf("no code in mail body: %q", sender.body)
	}
	return u, m[1]
}

func TestRegisterVerifyAuthenticate(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	u, code := register(t, svc, sender, "rider@example.com", "correct horse")
	if u.ID == "" || u.Email != "rider@example.com" {
		t.Fatalf("bad user: %+v", u)
	}
	if u.PasswordHash != "" {
		t.Fatal("password hash leaked in register result")
	}
	if sender.to != "rider@example.com" {
		t.Fatalf("mail sent to %q", sender.to)
	}

	// Unverified sign-in is refused.
	if _, _, err := svc.Authenticate(ctx, "rider@example.com", "correct horse"); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}

	if err := svc.Verify(ctx, "rider@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	tok, exp, err := svc.Authenticate(ctx, "rider@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if tok == "" || !exp.After(time.Now()) {
		t.Fatalf("bad token/expiry: %q %v", tok, exp)
	}
}

func TestRegister_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "correct horse"); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, "rider@example.com", "short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for weak password, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, sender := newTestService(t)
	register(t, svc, sender, "rider@example.com", "correct horse")

	_, err := svc.Register(context.Background(), "rider@example.com", "correct horse")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Case-insensitive duplicate too.
	_, err = svc.Register(context.Background(), "RIDER@example.com", "correct horse")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for case variant, got %v", err)
	}
}

func TestVerify_WrongAndExpiredCode(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	u, code := register(t, svc, sender, "rider@example.com", "correct horse")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := svc.Verify(ctx, "rider@example.com", wrong); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// Drop the stored code to simulate expiry.
	if err := svc.Codes.Delete(ctx, codeKey(u.ID)); err != nil {
		t.Fatalf("delete code: %v", err)
	}
	if err := svc.Verify(ctx, "rider@example.com", code); !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestVerify_UnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Verify(context.Background(), "ghost@example.com", "123456"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	_, code := register(t, svc, sender, "rider@example.com", "correct horse")
	if err := svc.Verify(ctx, "rider@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, _, err := svc.Authenticate(ctx, "rider@example.com", "wrong pass"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "ghost@example.com", "whatever pass"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for unknown email, got %v", err)
	}
}

func TestAuthenticate_CaseInsensitiveEmail(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	_, code := register(t, svc, sender, "rider@example.com", "correct horse")
	if err := svc.Verify(ctx, "rider@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "Rider@Example.COM", "correct horse"); err != nil {
		t.Fatalf("case variant sign-in failed: %v", err)
	}
}
