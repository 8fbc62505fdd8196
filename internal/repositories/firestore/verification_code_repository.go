package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/pizza-hub/api/internal/domain"
	pfirestore "github.com/pizza-hub/api/internal/platform/firestore"
	"github.com/pizza-hub/api/internal/repositories"
)

const verificationCodeCollection = "verificationCodes"

// VerificationCodeRepository stores registration verification codes keyed by
// user ID. Writing a new code replaces any pending one for the same user.
type VerificationCodeRepository struct {
	base *pfirestore.BaseRepository[verificationCodeDocument]
}

// NewVerificationCodeRepository constructs a Firestore-backed code repository.
func NewVerificationCodeRepository(provider *pfirestore.Provider) (*VerificationCodeRepository, error) {
	if provider == nil {
		return nil, errors.New("verification code repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[verificationCodeDocument](provider, verificationCodeCollection, nil)
	return &VerificationCodeRepository{base: base}, nil
}

// Put upserts the code for the user.
func (r *VerificationCodeRepository) Put(ctx context.Context, code domain.VerificationCode) error {
	if r == nil || r.base == nil {
		return errors.New("verification code repository not initialised")
	}
	userID := strings.TrimSpace(code.UserID)
	if userID == "" {
		return errors.New("verification code repository: user id is required")
	}

	doc := verificationCodeDocument{
		Code:      strings.TrimSpace(code.Code),
		ExpiresAt: code.ExpiresAt.UTC(),
		CreatedAt: code.CreatedAt.UTC(),
	}
	_, err := r.base.Set(ctx, userID, doc)
	return err
}

// FindByUser loads the pending code for the user.
func (r *VerificationCodeRepository) FindByUser(ctx context.Context, userID string) (domain.VerificationCode, error) {
	if r == nil || r.base == nil {
		return domain.VerificationCode{}, errors.New("verification code repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.VerificationCode{}, errors.New("verification code repository: user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.VerificationCode{}, err
	}
	return domain.VerificationCode{
		UserID:    doc.ID,
		Code:      doc.Data.Code,
		ExpiresAt: doc.Data.ExpiresAt,
		CreatedAt: doc.Data.CreatedAt,
	}, nil
}

// Delete removes the pending code. Deleting an absent code is not an error.
func (r *VerificationCodeRepository) Delete(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("verification code repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("verification code repository: user id is required")
	}
	return r.base.Delete(ctx, userID)
}

type verificationCodeDocument struct {
	Code      string    `firestore:"code"`
	ExpiresAt time.Time `firestore:"expiresAt"`
	CreatedAt time.Time `firestore:"createdAt"`
}

var _ repositories.VerificationCodeRepository = (*VerificationCodeRepository)(nil)
