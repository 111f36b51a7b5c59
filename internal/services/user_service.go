package services

import (
	"context"
	"database/sql"
	"log"

	"bountyboard/internal/database"
	"bountyboard/internal/models"
	"bountyboard/pkg/auth"

	"github.com/google/uuid"
)

// UserService manages accounts, balances and the profile store.
type UserService struct {
	db       *database.DB
	profiles *ProfileStore
}

// NewUserService creates a new user service.
func NewUserService(db *database.DB, profiles *ProfileStore) *UserService {
	return &UserService{db: db, profiles: profiles}
}

const userColumns = "id, email, display_name, password_hash, role, dodo_customer_id, push_token, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var (
		u  models.User
		id string
	)
	err := row.Scan(&id, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role,
		&u.DodoCustomerID, &u.PushToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = models.ID(id)
	return &u, nil
}

// Signup creates an account with a zero balance.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.User, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, database.NewError(database.CodeInternal, err.Error(), nil)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to hash password", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, display_name, password_hash, role) VALUES (?, ?, ?, ?, 'user')",
		id, req.Email, req.DisplayName, hash)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, database.NewError(database.CodeDuplicate, "email already registered", err)
		}
		return nil, database.NewError(database.CodeInternal, "failed to create user", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO balances (user_id, amount_cents) VALUES (?, 0)", id); err != nil {
		log.Printf("⚠️  [USER] Failed to seed balance for %s: %v", id, err)
	}

	log.Printf("👤 [USER] Created account %s (%s)", id, req.Email)
	return s.GetUser(ctx, models.ID(id))
}

// Authenticate verifies email + password and returns the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, database.NewError(database.CodeNotFound, "invalid email or password", nil)
	}
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to load user", err)
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil || !ok {
		return nil, database.NewError(database.CodePermission, "invalid email or password", err)
	}
	return u, nil
}

// GetUser returns one user by id.
func (s *UserService) GetUser(ctx context.Context, id models.ID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id.String())
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, database.NewError(database.CodeNotFound, "user not found", nil)
	}
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to load user", err)
	}
	return u, nil
}

// SetPushToken stores the device push token for a user.
func (s *UserService) SetPushToken(ctx context.Context, id models.ID, token string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET push_token = ? WHERE id = ?", token, id.String())
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to store push token", err)
	}
	return nil
}

// SetDodoCustomer records the payment-provider customer id.
func (s *UserService) SetDodoCustomer(ctx context.Context, id models.ID, customerID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET dodo_customer_id = ? WHERE id = ?", customerID, id.String())
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to store customer id", err)
	}
	return nil
}

// UpdateProfile updates display fields and fans the new profile out to
// store subscribers.
func (s *UserService) UpdateProfile(ctx context.Context, id models.ID, displayName string) (*models.User, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET display_name = ? WHERE id = ?", displayName, id.String())
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to update profile", err)
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.profiles != nil {
		s.profiles.Update(&models.Profile{
			UserID:      u.ID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
		})
	}
	return u, nil
}

// GetBalance returns the user's balance row, seeding a zero row if absent.
func (s *UserService) GetBalance(ctx context.Context, id models.ID) (*models.Balance, error) {
	var b models.Balance
	var userID string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, amount_cents, escrowed_cents, updated_at FROM balances WHERE user_id = ?",
		id.String()).Scan(&userID, &b.AmountCents, &b.EscrowedCents, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.Balance{UserID: id}, nil
	}
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to load balance", err)
	}
	b.UserID = models.ID(userID)
	return &b, nil
}

// Credit adds funds to the user's spendable balance.
func (s *UserService) Credit(ctx context.Context, id models.ID, amountCents int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (user_id, amount_cents) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE amount_cents = amount_cents + VALUES(amount_cents)`,
		id.String(), amountCents)
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to credit balance", err)
	}
	return nil
}

// Hold moves funds from spendable to escrowed. Fails with conflict when
// the spendable balance is insufficient.
func (s *UserService) Hold(ctx context.Context, id models.ID, amountCents int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE balances SET amount_cents = amount_cents - ?, escrowed_cents = escrowed_cents + ?
		 WHERE user_id = ? AND amount_cents >= ?`,
		amountCents, amountCents, id.String(), amountCents)
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to hold funds", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.NewError(database.CodeConflict, "insufficient balance", nil)
	}
	return nil
}

// Release moves escrowed funds back to spendable (refund path).
func (s *UserService) Release(ctx context.Context, id models.ID, amountCents int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE balances SET amount_cents = amount_cents + ?, escrowed_cents = escrowed_cents - ?
		 WHERE user_id = ? AND escrowed_cents >= ?`,
		amountCents, amountCents, id.String(), amountCents)
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to release funds", err)
	}
	return nil
}
