package services

import (
	"errors"

	"github.com/pizza-hub/api/internal/repositories"
)

// Sentinel errors shared across the service layer. Handlers map these onto
// HTTP status codes, so services must wrap rather than replace them.
var (
	// ErrCartTokenMissing indicates the caller supplied no cart token.
	ErrCartTokenMissing = errors.New("cart token is missing")
	// ErrCartNotFound indicates no cart exists for the supplied token.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartItemNotFound indicates the referenced line does not belong to the cart.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrCartEmpty indicates checkout was attempted on a cart with no items.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderStatusFinal indicates a transition was requested on a terminal order.
	ErrOrderStatusFinal = errors.New("order status is final")
	// ErrPaymentCreationFailed indicates the payment provider could not issue a link.
	ErrPaymentCreationFailed = errors.New("payment creation failed")

	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrUserNotFound indicates no account exists for the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates the email is taken by a verified account.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrEmailUnverified indicates the account exists but has not confirmed its email.
	ErrEmailUnverified = errors.New("email is not verified")
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVerificationCodeExpired indicates the confirmation code outlived its TTL.
	ErrVerificationCodeExpired = errors.New("verification code expired")
	// ErrVerificationCodeMismatch indicates the submitted code does not match.
	ErrVerificationCodeMismatch = errors.New("verification code mismatch")

	// ErrInvalidInput indicates the caller supplied malformed request data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable indicates a backend dependency failed.
	ErrUnavailable = errors.New("service unavailable")
)

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
