package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"bountyboard/internal/logging"
	"bountyboard/internal/models"
)

// ErrInsufficientBalance aborts an acceptance attempt before any
// visible state is touched. The handler answers it with a deposit
// offer.
type ErrInsufficientBalance struct {
	NeededCents    int64
	AvailableCents int64
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: need %d cents, have %d", e.NeededCents, e.AvailableCents)
}

// ErrAcceptFailed wraps a primary-path failure. The board has already
// been reloaded from source by the time the caller sees it; the user is
// told the view may have been out of sync.
type ErrAcceptFailed struct {
	Err error
}

func (e *ErrAcceptFailed) Error() string {
	return fmt.Sprintf("accept failed: %v", e.Err)
}

func (e *ErrAcceptFailed) Unwrap() error {
	return e.Err
}

// RequestBackend is the slice of the data backend the coordinator
// drives. BountyService implements it.
type RequestBackend interface {
	GetRequest(ctx context.Context, id models.ID) (*models.BountyRequest, error)
	GetBounty(ctx context.Context, id models.ID) (*models.Bounty, error)
	AcceptRequest(ctx context.Context, posterID, requestID models.ID) (*models.BountyRequest, *models.Bounty, error)
	SetBountyStatus(ctx context.Context, id models.ID, status string) error
	DeleteCompetingRequests(ctx context.Context, bountyID, exceptRequestID models.ID) (int, error)
	LoadBoard(ctx context.Context, userID models.ID) (*models.BoardView, error)
}

// BalanceSource reads a user's spendable balance. UserService
// implements it.
type BalanceSource interface {
	GetBalance(ctx context.Context, id models.ID) (*models.Balance, error)
}

// EscrowCreator holds funds for a paid bounty. EscrowService
// implements it.
type EscrowCreator interface {
	CreateEscrow(ctx context.Context, bountyID models.ID, amountCents int64, title string, userID models.ID) (string, error)
}

// ConversationCreator establishes the coordination channel.
// ConversationService implements it.
type ConversationCreator interface {
	CreateBountyConversation(ctx context.Context, bountyID, posterID, hunterID models.ID, bountyTitle string) (*models.Conversation, error)
	CreateFallbackConversation(ctx context.Context, bountyID, posterID, hunterID models.ID, bountyTitle string) (*models.Conversation, error)
}

// AcceptedNotifier tells the hunter they were picked. Dispatch must be
// fire-and-forget.
type AcceptedNotifier interface {
	NotifyAccepted(hunterID models.ID, bounty *models.Bounty)
}

// AcceptService coordinates the request-acceptance workflow. The board
// view is patched optimistically before the remote accept so the tap
// feels instant; correctness is restored by unconditionally reloading
// the affected boards from source afterwards, on success and on
// failure alike. There is no fine-grained rollback.
//
// Only the balance check and the accept call itself are primary: every
// later step (status sync, competitor cleanup, conversation creation,
// notification) degrades to a log line and a metric.
type AcceptService struct {
	backend       RequestBackend
	balances      BalanceSource
	escrow        EscrowCreator // nil when payments are disabled
	conversations ConversationCreator // nil when Mongo is absent
	notifier      AcceptedNotifier // nil when pushes are disabled
	board         *BoardService
	pubsub        *PubSubService // nil in single-instance setups
}

// NewAcceptService wires the coordinator. Only backend and board are
// required; every other collaborator degrades gracefully when nil.
func NewAcceptService(backend RequestBackend, balances BalanceSource, escrow EscrowCreator,
	conversations ConversationCreator, notifier AcceptedNotifier, board *BoardService, pubsub *PubSubService) *AcceptService {
	return &AcceptService{
		backend:       backend,
		balances:      balances,
		escrow:        escrow,
		conversations: conversations,
		notifier:      notifier,
		board:         board,
		pubsub:        pubsub,
	}
}

// Accept runs one acceptance attempt for the poster.
func (s *AcceptService) Accept(ctx context.Context, posterID, requestID models.ID) (*models.AcceptResult, error) {
	req, err := s.backend.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	bounty, err := s.backend.GetBounty(ctx, req.BountyID)
	if err != nil {
		return nil, err
	}

	logger := logging.WithAccept(requestID.String(), bounty.ID.String(), posterID.String())

	// Balance check comes before any visible mutation: an aborted
	// attempt never touches the board.
	if bounty.IsPaid() && s.balances != nil {
		balance, err := s.balances.GetBalance(ctx, posterID)
		if err != nil {
			return nil, err
		}
		if balance.AmountCents < bounty.AmountCents {
			GetMetrics().RecordAcceptAttempt("insufficient_balance")
			return nil, &ErrInsufficientBalance{
				NeededCents:    bounty.AmountCents,
				AvailableCents: balance.AmountCents,
			}
		}
	}

	// Optimistic patch: the request and its siblings leave the pending
	// list, the posting flips to in_progress, and the hunter's board
	// gains the bounty.
	s.board.RemovePendingForBounty(posterID, bounty.ID)
	s.board.MarkInProgress(posterID, bounty.ID, req.HunterID)

	optimistic := *bounty
	optimistic.Status = models.BountyStatusInProgress
	optimistic.AcceptedBy = req.HunterID
	s.board.AddInProgress(req.HunterID, &optimistic)

	accepted, acceptedBounty, err := s.backend.AcceptRequest(ctx, posterID, requestID)
	if err != nil {
		// Primary failure: no manual rollback, the reload is the
		// correctness backstop.
		logger.Warn("accept call failed, reloading board", "error", err)
		GetMetrics().RecordAcceptAttempt("primary_failure")
		s.reloadBoards(ctx, posterID, req.HunterID, logger)
		return nil, &ErrAcceptFailed{Err: err}
	}

	result := &models.AcceptResult{
		Request: accepted,
		Bounty:  acceptedBounty,
		Paid:    acceptedBounty.IsPaid(),
	}

	// Everything below is best-effort.
	if acceptedBounty.IsPaid() && s.escrow != nil {
		escrowID, err := s.escrow.CreateEscrow(ctx, acceptedBounty.ID, acceptedBounty.AmountCents, acceptedBounty.Title, posterID)
		if err != nil {
			logger.Warn("escrow creation failed", "error", err)
			GetMetrics().RecordSecondaryFailure("escrow")
		} else {
			result.EscrowID = escrowID
		}
	}

	if err := s.backend.SetBountyStatus(ctx, acceptedBounty.ID, models.BountyStatusInProgress); err != nil {
		logger.Warn("status sync failed", "error", err)
		GetMetrics().RecordSecondaryFailure("status_sync")
	}

	if n, err := s.backend.DeleteCompetingRequests(ctx, acceptedBounty.ID, accepted.ID); err != nil {
		logger.Warn("competitor cleanup failed", "error", err)
		GetMetrics().RecordSecondaryFailure("competitor_cleanup")
	} else if n > 0 {
		log.Printf("🧹 [ACCEPT] Removed %d competing requests for bounty %s", n, acceptedBounty.ID)
	}

	if conv := s.createConversation(ctx, accepted, acceptedBounty, posterID, logger); conv != nil {
		result.ConversationID = conv.ID.Hex()
	}

	s.reloadBoards(ctx, posterID, accepted.HunterID, logger)

	if s.notifier != nil {
		s.notifier.NotifyAccepted(accepted.HunterID, acceptedBounty)
	}

	s.publishAccepted(ctx, accepted, acceptedBounty)

	GetMetrics().RecordAcceptAttempt("success")
	logger.Info("acceptance complete", "hunter_id", accepted.HunterID.String())
	return result, nil
}

// createConversation tries the primary path, then the local fallback.
// Both failing leaves the acceptance successful with no conversation.
func (s *AcceptService) createConversation(ctx context.Context, req *models.BountyRequest, bounty *models.Bounty, posterID models.ID, logger *slog.Logger) *models.Conversation {
	if s.conversations == nil {
		return nil
	}

	conv, err := s.conversations.CreateBountyConversation(ctx, bounty.ID, posterID, req.HunterID, bounty.Title)
	if err == nil {
		return conv
	}
	logger.Warn("primary conversation creation failed, trying fallback", "error", err)
	GetMetrics().RecordSecondaryFailure("conversation")

	conv, err = s.conversations.CreateFallbackConversation(ctx, bounty.ID, posterID, req.HunterID, bounty.Title)
	if err == nil {
		return conv
	}
	logger.Warn("fallback conversation creation failed", "error", err)
	GetMetrics().RecordSecondaryFailure("conversation_fallback")
	return nil
}

// reloadBoards replaces both participants' views with authoritative
// server state. Runs on success and on primary failure alike.
func (s *AcceptService) reloadBoards(ctx context.Context, posterID, hunterID models.ID, logger *slog.Logger) {
	for _, userID := range []models.ID{posterID, hunterID} {
		if userID.IsZero() {
			continue
		}
		view, err := s.backend.LoadBoard(ctx, userID)
		if err != nil {
			logger.Warn("board reload failed", "user_id", userID.String(), "error", err)
			GetMetrics().RecordSecondaryFailure("reload")
			continue
		}
		s.board.Replace(userID, view)
	}
}

func (s *AcceptService) publishAccepted(ctx context.Context, req *models.BountyRequest, bounty *models.Bounty) {
	if s.pubsub == nil {
		return
	}

	payload := map[string]interface{}{
		"bounty_id":  bounty.ID.String(),
		"request_id": req.ID.String(),
		"hunter_id":  req.HunterID.String(),
		"status":     bounty.Status,
	}
	for _, userID := range []models.ID{bounty.PosterID, req.HunterID} {
		if err := s.pubsub.PublishToUser(ctx, userID.String(), models.WSEventRequestAccepted, payload); err != nil {
			log.Printf("⚠️  [ACCEPT] Failed to publish accepted event: %v", err)
		}
	}
}

// IsInsufficientBalance reports whether err is the deposit-offer abort.
func IsInsufficientBalance(err error) bool {
	var target *ErrInsufficientBalance
	return errors.As(err, &target)
}
