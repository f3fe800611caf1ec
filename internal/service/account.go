package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
	"github.com/efreitasn/finance/internal/store"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// RegisterRequest represents the input for user registration. A nil
// InitialCash uses the service default.
type RegisterRequest struct {
	Username    string
	InitialCash *string
}

// AccountService handles user registration and lookup.
type AccountService struct {
	store       store.Store
	initialCash decimal.Decimal
	logger      *slog.Logger
}

// NewAccountService creates a new AccountService. New users start with
// initialCash unless the request overrides it.
func NewAccountService(st store.Store, initialCash decimal.Decimal, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:       st,
		initialCash: initialCash,
		logger:      logger,
	}
}

// Register validates the request and creates a user with a fresh user_id.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if !usernameRegex.MatchString(req.Username) {
		return nil, &domain.ValidationError{
			Message: "username must match ^[a-zA-Z0-9_.-]{1,64}$",
		}
	}

	cash := s.initialCash
	if req.InitialCash != nil {
		c, err := domain.ParseCash(*req.InitialCash)
		if err != nil {
			return nil, &domain.ValidationError{Message: "initial_cash: " + err.Error()}
		}
		if c.IsNegative() {
			return nil, &domain.ValidationError{Message: "initial_cash must be >= 0"}
		}
		cash = c
	}

	u := &domain.User{
		UserID:    uuid.New().String(),
		Username:  req.Username,
		Cash:      cash,
		CreatedAt: time.Now().UTC(),
	}
	// Returns ErrUserAlreadyExists if the username is taken.
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", u.UserID),
		slog.String("username", u.Username),
		slog.String("cash", u.Cash.String()),
	)
	return u, nil
}

// CheckUsername reports whether username is well-formed and not taken.
func (s *AccountService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if !usernameRegex.MatchString(username) {
		return false, nil
	}
	_, err := s.store.GetUserByName(ctx, username)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return false, nil
}

// Get returns the user with its current cash balance.
func (s *AccountService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}
