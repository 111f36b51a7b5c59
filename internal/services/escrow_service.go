package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"bountyboard/internal/database"
	"bountyboard/internal/models"

	"github.com/dodopayments/dodopayments-go"
	"github.com/dodopayments/dodopayments-go/option"
	"github.com/google/uuid"
)

// Escrow statuses.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// EscrowService holds funds for paid bounties. The hold/release ledger
// lives in MySQL; deposits top the balance up through DodoPayments
// checkout sessions. The provider client may be nil, in which case
// deposits are disabled but the escrow ledger still works.
type EscrowService struct {
	client *dodopayments.Client
	db     *database.DB
	users  *UserService
}

// NewEscrowService creates a new escrow service. environment selects
// the provider mode; anything but "live" stays in test mode.
func NewEscrowService(apiKey, environment string, db *database.DB, users *UserService) *EscrowService {
	var client *dodopayments.Client
	if apiKey != "" {
		var envOpt option.RequestOption
		if environment == "live" {
			envOpt = option.WithEnvironmentLiveMode()
		} else {
			envOpt = option.WithEnvironmentTestMode()
		}

		client = dodopayments.NewClient(
			option.WithBearerToken(apiKey),
			envOpt,
		)
		log.Println("✅ DodoPayments client initialized")
	} else {
		log.Println("⚠️  DodoPayments API key not provided, deposits disabled")
	}

	return &EscrowService{client: client, db: db, users: users}
}

// CreateEscrow holds amountCents of the poster's balance against the
// bounty and records the escrow row. Returns the escrow id.
func (s *EscrowService) CreateEscrow(ctx context.Context, bountyID models.ID, amountCents int64, title string, userID models.ID) (string, error) {
	if amountCents <= 0 {
		return "", database.NewError(database.CodeInternal, "escrow amount must be positive", nil)
	}

	if err := s.users.Hold(ctx, userID, amountCents); err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escrows (id, bounty_id, user_id, amount_cents, status)
		 VALUES (?, ?, ?, ?, ?)`,
		id, bountyID.String(), userID.String(), amountCents, EscrowStatusHeld)
	if err != nil {
		// Undo the hold so funds are not stranded
		if relErr := s.users.Release(ctx, userID, amountCents); relErr != nil {
			log.Printf("❌ [ESCROW] Failed to undo hold after insert failure: %v", relErr)
		}
		return "", database.NewError(database.CodeInternal, "failed to record escrow", err)
	}

	log.Printf("💰 [ESCROW] Held %d cents for bounty %s (%q)", amountCents, bountyID, title)
	return id, nil
}

// RefundEscrow returns held funds to the poster and marks the escrow
// refunded. Refunding an already-settled escrow is a no-op conflict.
func (s *EscrowService) RefundEscrow(ctx context.Context, escrowID string) error {
	var (
		userID      string
		amountCents int64
		status      string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, amount_cents, status FROM escrows WHERE id = ?", escrowID).
		Scan(&userID, &amountCents, &status)
	if err == sql.ErrNoRows {
		return database.NewError(database.CodeNotFound, "escrow not found", nil)
	}
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to load escrow", err)
	}
	if status != EscrowStatusHeld {
		return database.NewError(database.CodeConflict, "escrow is not held", nil)
	}

	if err := s.users.Release(ctx, models.ID(userID), amountCents); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE escrows SET status = ? WHERE id = ?", EscrowStatusRefunded, escrowID)
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to mark escrow refunded", err)
	}

	log.Printf("↩️  [ESCROW] Refunded %d cents to %s (escrow %s)", amountCents, userID, escrowID)
	return nil
}

// ReleaseEscrow pays held funds out to the hunter on completion.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, escrowID string, hunterID models.ID) error {
	var (
		userID      string
		amountCents int64
		status      string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, amount_cents, status FROM escrows WHERE id = ?", escrowID).
		Scan(&userID, &amountCents, &status)
	if err == sql.ErrNoRows {
		return database.NewError(database.CodeNotFound, "escrow not found", nil)
	}
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to load escrow", err)
	}
	if status != EscrowStatusHeld {
		return database.NewError(database.CodeConflict, "escrow is not held", nil)
	}

	// Drop the poster's escrowed amount and credit the hunter
	if _, err := s.db.ExecContext(ctx,
		"UPDATE balances SET escrowed_cents = escrowed_cents - ? WHERE user_id = ? AND escrowed_cents >= ?",
		amountCents, userID, amountCents); err != nil {
		return database.NewError(database.CodeInternal, "failed to settle escrow", err)
	}
	if err := s.users.Credit(ctx, hunterID, amountCents); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE escrows SET status = ? WHERE id = ?", EscrowStatusReleased, escrowID)
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to mark escrow released", err)
	}

	log.Printf("💸 [ESCROW] Released %d cents to hunter %s (escrow %s)", amountCents, hunterID, escrowID)
	return nil
}

// FindHeldEscrow returns the held escrow id for a bounty, if any.
func (s *EscrowService) FindHeldEscrow(ctx context.Context, bountyID models.ID) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM escrows WHERE bounty_id = ? AND status = ?", bountyID.String(), EscrowStatusHeld).
		Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, database.NewError(database.CodeInternal, "failed to look up escrow", err)
	}
	return id, true, nil
}

// CreateDepositCheckout creates a provider checkout session the poster
// uses to top up their balance after an insufficient-balance abort.
func (s *EscrowService) CreateDepositCheckout(ctx context.Context, user *models.User, productID string) (string, error) {
	if s.client == nil {
		return "", database.NewError(database.CodeInternal, "payments are not configured", nil)
	}

	customerID := user.DodoCustomerID
	if customerID == "" {
		customerName := user.DisplayName
		if customerName == "" {
			customerName = user.Email
			if atIndex := strings.Index(user.Email, "@"); atIndex > 0 {
				customerName = user.Email[:atIndex]
			}
		}

		customer, err := s.client.Customers.New(ctx, dodopayments.CustomerNewParams{
			Email: dodopayments.F(user.Email),
			Name:  dodopayments.F(customerName),
			Metadata: dodopayments.F(map[string]string{
				"bountyboard_user_id": user.ID.String(),
			}),
		})
		if err != nil {
			return "", fmt.Errorf("failed to create customer: %w", err)
		}

		customerID = customer.CustomerID
		if err := s.users.SetDodoCustomer(ctx, user.ID, customerID); err != nil {
			return "", err
		}
	}

	session, err := s.client.CheckoutSessions.New(ctx, dodopayments.CheckoutSessionNewParams{
		CheckoutSessionRequest: dodopayments.CheckoutSessionRequestParam{
			ProductCart: dodopayments.F([]dodopayments.CheckoutSessionRequestProductCartParam{{
				ProductID: dodopayments.F(productID),
				Quantity:  dodopayments.F(int64(1)),
			}}),
			ReturnURL: dodopayments.F(fmt.Sprintf("%s/wallet?deposit=success", getBaseURL())),
			Customer: dodopayments.F[dodopayments.CustomerRequestUnionParam](dodopayments.AttachExistingCustomerParam{
				CustomerID: dodopayments.F(customerID),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return session.CheckoutURL, nil
}

func getBaseURL() string {
	if url := os.Getenv("APP_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}
