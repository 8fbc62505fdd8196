package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/repositories"
)

const (
	defaultVerificationTTL = 15 * time.Minute
	minPasswordLength      = 8
)

// SessionIssuer mints the signed session token returned on login.
type SessionIssuer interface {
	Issue(userID, email string) (string, error)
}

// UserServiceDeps wires the account repositories and notification channel.
type UserServiceDeps struct {
	Users         repositories.UserRepository
	Codes         repositories.VerificationCodeRepository
	Mail          MailSender
	Sessions      SessionIssuer
	Clock         func() time.Time
	IDGenerator   func() string
	CodeGenerator func() (string, error)
	CodeTTL       time.Duration
	BcryptCost    int
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users      repositories.UserRepository
	codes      repositories.VerificationCodeRepository
	mail       MailSender
	sessions   SessionIssuer
	now        func() time.Time
	newID      func() string
	newCode    func() (string, error)
	codeTTL    time.Duration
	bcryptCost int
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewUserService constructs a UserService validating required dependencies.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Codes == nil {
		return nil, errors.New("user service: verification code repository is required")
	}
	if deps.Mail == nil {
		return nil, errors.New("user service: mail sender is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("user service: session issuer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	codeGen := deps.CodeGenerator
	if codeGen == nil {
		codeGen = generateVerificationCode
	}
	ttl := deps.CodeTTL
	if ttl <= 0 {
		ttl = defaultVerificationTTL
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:      deps.Users,
		codes:      deps.Codes,
		mail:       deps.Mail,
		sessions:   deps.Sessions,
		now:        func() time.Time { return clock().UTC() },
		newID:      idGen,
		newCode:    codeGen,
		codeTTL:    ttl,
		bcryptCost: cost,
		logger:     logger,
	}, nil
}

// Register creates an unverified account and mails the confirmation code. The
// registration email is awaited: a delivery failure fails the whole request.
func (s *userService) Register(ctx context.Context, cmd RegisterUserCommand) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrUnavailable
	}

	fullName := strings.TrimSpace(cmd.FullName)
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return User{}, err
	}
	if fullName == "" {
		return User{}, fmt.Errorf("%w: fullName is required", ErrInvalidInput)
	}
	if len(cmd.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Verified {
			return User{}, fmt.Errorf("%w: %s", ErrUserAlreadyExists, email)
		}
		return User{}, fmt.Errorf("%w: %s", ErrEmailUnverified, email)
	case isRepoNotFound(err):
		// New account.
	default:
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := s.now()
	user := domain.User{
		ID:           s.newID(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if isRepoConflict(err) {
			return User{}, fmt.Errorf("%w: %s", ErrUserAlreadyExists, email)
		}
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	code, err := s.newCode()
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.codes.Put(ctx, domain.VerificationCode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := s.mail.SendVerificationEmail(ctx, email, code); err != nil {
		s.logger(ctx, "users.verification_mail_failed", map[string]any{
			"userId": user.ID,
			"error":  err.Error(),
		})
		return User{}, fmt.Errorf("%w: verification email could not be sent", ErrUnavailable)
	}

	return user, nil
}

// Verify confirms the account using the mailed code and deletes the code.
func (s *userService) Verify(ctx context.Context, cmd VerifyUserCommand) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrUnavailable
	}

	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return User{}, err
	}
	submitted := strings.TrimSpace(cmd.Code)
	if submitted == "" {
		return User{}, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if user.Verified {
		return user, nil
	}

	code, err := s.codes.FindByUser(ctx, user.ID)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrVerificationCodeMismatch
		}
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := s.now()
	if now.After(code.ExpiresAt) {
		return User{}, ErrVerificationCodeExpired
	}
	if code.Code != submitted {
		return User{}, ErrVerificationCodeMismatch
	}

	ts := now
	user.Verified = true
	user.VerifiedAt = &ts
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := s.codes.Delete(ctx, user.ID); err != nil {
		// The code is single-use by construction. A stale row only matters
		// until its TTL passes, so log and move on.
		s.logger(ctx, "users.code_cleanup_failed", map[string]any{
			"userId": user.ID,
			"error":  err.Error(),
		})
	}

	return user, nil
}

// Login checks the credentials and mints a session token for verified accounts.
func (s *userService) Login(ctx context.Context, cmd LoginCommand) (LoginResult, error) {
	if s == nil || s.users == nil {
		return LoginResult{}, ErrUnavailable
	}

	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if cmd.Password == "" {
		return LoginResult{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isRepoNotFound(err) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return LoginResult{}, ErrEmailUnverified
	}

	token, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// GetProfile loads the account for the authenticated user.
func (s *userService) GetProfile(ctx context.Context, userID string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return user, nil
}

// UpdateProfile applies partial updates to the account. Changing the email
// moves the account back to unverified until the new address confirms a code.
func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrUnavailable
	}

	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if cmd.FullName == nil && cmd.Email == nil && cmd.Password == nil {
		return User{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := s.now()
	emailChanged := false

	if cmd.FullName != nil {
		fullName := strings.TrimSpace(*cmd.FullName)
		if fullName == "" {
			return User{}, fmt.Errorf("%w: fullName must not be empty", ErrInvalidInput)
		}
		user.FullName = fullName
	}

	if cmd.Email != nil {
		email, err := normaliseEmail(*cmd.Email)
		if err != nil {
			return User{}, err
		}
		if email != user.Email {
			if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing.ID != user.ID {
				return User{}, fmt.Errorf("%w: %s", ErrUserAlreadyExists, email)
			} else if err != nil && !isRepoNotFound(err) {
				return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			user.Email = email
			user.Verified = false
			user.VerifiedAt = nil
			emailChanged = true
		}
	}

	if cmd.Password != nil {
		if len(*cmd.Password) < minPasswordLength {
			return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*cmd.Password), s.bcryptCost)
		if err != nil {
			return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		user.PasswordHash = string(hash)
	}

	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if emailChanged {
		code, err := s.newCode()
		if err != nil {
			return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := s.codes.Put(ctx, domain.VerificationCode{
			UserID:    user.ID,
			Code:      code,
			ExpiresAt: now.Add(s.codeTTL),
			CreatedAt: now,
		}); err != nil {
			return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := s.mail.SendVerificationEmail(ctx, user.Email, code); err != nil {
			s.logger(ctx, "users.verification_mail_failed", map[string]any{
				"userId": user.ID,
				"error":  err.Error(),
			})
			return User{}, fmt.Errorf("%w: verification email could not be sent", ErrUnavailable)
		}
	}

	return user, nil
}

// generateVerificationCode draws a uniformly distributed six digit code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100_000), nil
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	return email, nil
}
