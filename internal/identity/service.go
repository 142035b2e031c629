package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildrydes/dispatch/internal/cache"
	"github.com/wildrydes/dispatch/internal/domain"
	"github.com/wildrydes/dispatch/internal/email"
	"github.com/wildrydes/dispatch/internal/observability/logger"
	"github.com/wildrydes/dispatch/internal/security/password"
	"github.com/wildrydes/dispatch/internal/token"
)

// Service implements the identity-store contract: self-service registration,
// email verification, sign-in issuing bearer tokens, and public verification
// material for the gateway.
type Service struct {
	Store     UserStore
	Codes     cache.Client
	Sender    email.Sender
	Issuer    *token.Issuer
	ClientApp domain.ClientApp
	Policy    password.Policy
	VerifyTTL time.Duration

	// EchoCodes skips email delivery and logs the code. Dev only.
	EchoCodes bool
}

// Register creates an unverified user and sends a verification code.
// Fails with domain.ErrConflict or domain.ErrInvalidEmail.
func (s *Service) Register(ctx context.Context, emailAddr, plain string) (*domain.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEmail, emailAddr)
	}
	if err := s.Policy.Check(plain); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	hash, err := password.Hash(password.Default, plain)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := s.sendCode(ctx, u); err != nil {
		// User exists; delivery can be retried via a fresh registration
		// attempt surfacing ErrConflict plus resend, or an ops resend. Log
		// and keep the registration.
		logger.Named("identity").Warn("verification send failed",
			logger.Email(u.Email), logger.Err(err))
	}
	u.PasswordHash = ""
	return u, nil
}

// Verify confirms the emailed code. Fails with domain.ErrInvalidCode or
// domain.ErrCodeExpired.
func (s *Service) Verify(ctx context.Context, emailAddr, code string) error {
	u, err := s.Store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.ErrInvalidCode
		}
		return err
	}
	if u.EmailVerified {
		return nil
	}

	want, err := s.Codes.Get(ctx, codeKey(u.ID))
	if err != nil {
		if cache.IsNotFound(err) {
			return domain.ErrCodeExpired
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(code))) != 1 {
		return domain.ErrInvalidCode
	}

	if err := s.Store.SetEmailVerified(ctx, u.ID, true); err != nil {
		return err
	}
	_ = s.Codes.Delete(ctx, codeKey(u.ID))
	logger.Named("identity").Info("email verified", logger.Email(u.Email))
	return nil
}

// Authenticate checks credentials and issues a bearer token audienced to the
// registered client app. Fails with domain.ErrInvalidCredential or
// domain.ErrNotVerified. Email comparison is case-insensitive.
func (s *Service) Authenticate(ctx context.Context, emailAddr, plain string) (string, time.Time, error) {
	u, err := s.Store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if domain.IsNotFound(err) {
			// burn comparable time so absent emails are not distinguishable
			password.Verify(plain, decoyHash)
			return "", time.Time{}, domain.ErrInvalidCredential
		}
		return "", time.Time{}, err
	}
	if !password.Verify(plain, u.PasswordHash) {
		return "", time.Time{}, domain.ErrInvalidCredential
	}
	if !u.EmailVerified {
		return "", time.Time{}, domain.ErrNotVerified
	}
	return s.Issuer.IssueAccess(u.ID, s.ClientApp.ID)
}

// PublicKeys returns the JWKS the gateway verifies against.
func (s *Service) PublicKeys() ([]byte, error) {
	return s.Issuer.Keys.JWKSJSON()
}

func (s *Service) sendCode(ctx context.Context, u *domain.User) error {
	code, err := sixDigitCode()
	if err != nil {
		return err
	}
	ttl := s.VerifyTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	if err := s.Codes.Set(ctx, codeKey(u.ID), code, ttl); err != nil {
		return err
	}
	if s.EchoCodes {
		logger.Named("identity").Info("verification code issued (echo mode)",
			logger.Email(u.Email))
		fmt.Printf("VERIFICATION email=%s code=%s\n", u.Email, code)
		return nil
	}
	body := fmt.Sprintf("Your WildRydes verification code is %s.\nIt expires in %s.", code, ttl)
	return s.Sender.Send(u.Email, "Verify your WildRydes account", body)
}

func codeKey(userID string) string { return "verify:" + userID }

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// decoyHash is a throwaway argon2id hash used to equalize timing for unknown
// emails. Its plaintext is random and discarded.
var decoyHash = func() string {
	h, err := password.Hash(password.Default, uuid.NewString())
	if err != nil {
		return "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	}
	return h
}()
