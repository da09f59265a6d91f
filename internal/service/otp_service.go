package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/config"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/policy"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// OTPService issues one-time codes and exchanges them for bearer tokens.
type OTPService struct {
	runtime
	users      repository.UserRepository
	codes      repository.OTPStore
	deliverer  collab.OTPDeliverer
	tokens     *auth.TokenManager
	cfg        config.OTPConfig
	bcryptCost int
	generate   func(length int) (string, error)
	now        func() time.Time
}

// OTPDependencies bundles collaborators for the OTP service.
type OTPDependencies struct {
	UserRepo   repository.UserRepository
	Codes      repository.OTPStore
	Deliverer  collab.OTPDeliverer
	Tokens     *auth.TokenManager
	Config     config.OTPConfig
	BcryptCost int
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewOTPService constructs the service.
func NewOTPService(deps OTPDependencies) *OTPService {
	cfg := deps.Config
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.TTLSeconds <= 0 {
		cfg.TTLSeconds = 300
	}
	return &OTPService{
		runtime:    newRuntime(nil, deps.Metrics, deps.Logger),
		users:      deps.UserRepo,
		codes:      deps.Codes,
		deliverer:  deps.Deliverer,
		tokens:     deps.Tokens,
		cfg:        cfg,
		bcryptCost: deps.BcryptCost,
		generate:   numericCode,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RequestCode issues a code for a registered contact. Unknown contacts get the
// same response without a code being sent.
func (s *OTPService) RequestCode(ctx context.Context, contact string) ([]Warning, error) {
	contact = normalizeContact(contact)
	if contact == "" {
		return nil, validation("contact is required", map[string]any{"contact": "required"})
	}
	if _, err := s.users.GetByContact(ctx, contact); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("otp requested for unknown contact")
			return nil, nil
		}
		return nil, err
	}

	code, err := s.generate(s.cfg.Length)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashSecret(code, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	record := &domain.OTPRecord{Contact: contact, CodeHash: hash, ExpiresAt: s.now().Add(s.cfg.TTL())}
	if err := s.codes.Save(ctx, record, s.cfg.TTL()); err != nil {
		return nil, err
	}

	if err := s.deliverer.DeliverOTP(ctx, contact, code); err != nil {
		return []Warning{s.warn("otp_delivery_failed", err)}, nil
	}
	return nil, nil
}

// VerifyCode consumes a valid code and returns a bearer token for its owner.
func (s *OTPService) VerifyCode(ctx context.Context, contact, code string) (domain.Token, *domain.User, error) {
	contact = normalizeContact(contact)
	code = strings.TrimSpace(code)
	if contact == "" || code == "" {
		return domain.Token{}, nil, domain.ErrInvalidCode
	}

	record, err := s.codes.Load(ctx, contact)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Token{}, nil, domain.ErrInvalidCode
		}
		return domain.Token{}, nil, err
	}
	if !record.ExpiresAt.IsZero() && !s.now().Before(record.ExpiresAt) {
		_ = s.codes.Delete(ctx, contact)
		return domain.Token{}, nil, domain.ErrInvalidCode
	}
	if record.Attempts >= s.cfg.MaxAttempts {
		_ = s.codes.Delete(ctx, contact)
		return domain.Token{}, nil, domain.ErrTooManyAttempts
	}
	if !auth.CompareSecret(record.CodeHash, code) {
		attempts, err := s.codes.IncrementAttempts(ctx, contact)
		if err != nil {
			return domain.Token{}, nil, err
		}
		if attempts >= s.cfg.MaxAttempts {
			_ = s.codes.Delete(ctx, contact)
			return domain.Token{}, nil, domain.ErrTooManyAttempts
		}
		return domain.Token{}, nil, domain.ErrInvalidCode
	}
	consumed, err := s.codes.Consume(ctx, contact)
	if err != nil {
		return domain.Token{}, nil, err
	}
	if !consumed {
		return domain.Token{}, nil, domain.ErrInvalidCode
	}

	user, err := s.users.GetByContact(ctx, contact)
	if err != nil {
		return domain.Token{}, nil, err
	}
	if err := s.gate(user, "auth.verify"); err != nil {
		return domain.Token{}, nil, err
	}
	token, err := s.tokens.GenerateToken(user, policy.EffectiveRole(user))
	if err != nil {
		return domain.Token{}, nil, err
	}
	return token, user, nil
}

func normalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if strings.Contains(contact, "@") {
		return strings.ToLower(contact)
	}
	return contact
}

func numericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
