package services

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"bountyboard/internal/database"
	"bountyboard/internal/models"

	"github.com/google/uuid"
)

// BountyService is the row-level data backend for bounties and bounty
// requests. Errors carry a backend code (not_found, duplicate,
// permission_denied, conflict) that callers branch on.
type BountyService struct {
	db *database.DB
}

// NewBountyService creates a new bounty service.
func NewBountyService(db *database.DB) *BountyService {
	return &BountyService{db: db}
}

const bountyColumns = `id, poster_id, title, description, category, amount_cents, status,
	accepted_by, archived, deleted, created_at, updated_at, completed_at`

func scanBounty(row interface{ Scan(...interface{}) error }) (*models.Bounty, error) {
	var (
		b           models.Bounty
		id, poster  string
		acceptedBy  string
		description sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&id, &poster, &b.Title, &description, &b.Category, &b.AmountCents,
		&b.Status, &acceptedBy, &b.Archived, &b.Deleted, &b.CreatedAt, &b.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	b.ID = models.ID(id)
	b.PosterID = models.ID(poster)
	b.AcceptedBy = models.ID(acceptedBy)
	b.Description = description.String
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

// CreateBounty inserts a new open bounty for the poster.
func (s *BountyService) CreateBounty(ctx context.Context, posterID models.ID, req *models.CreateBountyRequest) (*models.Bounty, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, database.NewError(database.CodeInternal, "title is required", nil)
	}
	if req.AmountCents < 0 {
		return nil, database.NewError(database.CodeInternal, "amount cannot be negative", nil)
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bounties (id, poster_id, title, description, category, amount_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, posterID.String(), req.Title, req.Description, req.Category, req.AmountCents, models.BountyStatusOpen)
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to create bounty", err)
	}

	log.Printf("📌 [BOUNTY] Created bounty %s by %s (%d cents)", id, posterID, req.AmountCents)
	return s.GetBounty(ctx, models.ID(id))
}

// GetBounty returns one bounty by id. Soft-deleted bounties report not_found.
func (s *BountyService) GetBounty(ctx context.Context, id models.ID) (*models.Bounty, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+bountyColumns+" FROM bounties WHERE id = ? AND deleted = FALSE", id.String())
	b, err := scanBounty(row)
	if err == sql.ErrNoRows {
		return nil, database.NewError(database.CodeNotFound, "bounty not found", nil)
	}
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to load bounty", err)
	}
	return b, nil
}

// UpdateBounty applies a partial edit. Only the poster may edit.
func (s *BountyService) UpdateBounty(ctx context.Context, userID, id models.ID, req *models.UpdateBountyRequest) (*models.Bounty, error) {
	b, err := s.GetBounty(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.PosterID.Equal(userID) {
		return nil, database.NewError(database.CodePermission, "only the poster can edit a bounty", nil)
	}

	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Category != nil {
		b.Category = *req.Category
	}
	if req.AmountCents != nil && b.Status == models.BountyStatusOpen {
		b.AmountCents = *req.AmountCents
	}
	if req.Archived != nil {
		b.Archived = *req.Archived
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE bounties SET title = ?, description = ?, category = ?, amount_cents = ?, archived = ?
		 WHERE id = ?`,
		b.Title, b.Description, b.Category, b.AmountCents, b.Archived, id.String())
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to update bounty", err)
	}
	return s.GetBounty(ctx, id)
}

// DeleteBounty soft-deletes a bounty. Only the poster may delete.
func (s *BountyService) DeleteBounty(ctx context.Context, userID, id models.ID) error {
	b, err := s.GetBounty(ctx, id)
	if err != nil {
		return err
	}
	if !b.PosterID.Equal(userID) {
		return database.NewError(database.CodePermission, "only the poster can delete a bounty", nil)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE bounties SET deleted = TRUE WHERE id = ?", id.String())
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to delete bounty", err)
	}
	return nil
}

// SetBountyStatus updates only the status column.
func (s *BountyService) SetBountyStatus(ctx context.Context, id models.ID, status string) error {
	var completed interface{}
	if status == models.BountyStatusCompleted {
		completed = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE bounties SET status = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?",
		status, completed, id.String())
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to update bounty status", err)
	}
	return nil
}

// ListOpenBounties returns open, non-archived bounties, newest first.
func (s *BountyService) ListOpenBounties(ctx context.Context, category string, limit int) ([]models.Bounty, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := "SELECT " + bountyColumns + ` FROM bounties
		WHERE status = ? AND archived = FALSE AND deleted = FALSE`
	args := []interface{}{models.BountyStatusOpen}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	return s.queryBounties(ctx, query, args...)
}

// ListMyPostings returns all non-deleted bounties posted by the user.
func (s *BountyService) ListMyPostings(ctx context.Context, posterID models.ID) ([]models.Bounty, error) {
	return s.queryBounties(ctx,
		"SELECT "+bountyColumns+" FROM bounties WHERE poster_id = ? AND deleted = FALSE ORDER BY created_at DESC",
		posterID.String())
}

// ListInProgressFor returns the bounties the hunter was accepted on.
func (s *BountyService) ListInProgressFor(ctx context.Context, hunterID models.ID) ([]models.Bounty, error) {
	return s.queryBounties(ctx,
		`SELECT `+bountyColumns+` FROM bounties
		 WHERE accepted_by = ? AND status = ? AND deleted = FALSE ORDER BY updated_at DESC`,
		hunterID.String(), models.BountyStatusInProgress)
}

func (s *BountyService) queryBounties(ctx context.Context, query string, args ...interface{}) ([]models.Bounty, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to list bounties", err)
	}
	defer rows.Close()

	var out []models.Bounty
	for rows.Next() {
		b, err := scanBounty(rows)
		if err != nil {
			return nil, database.NewError(database.CodeInternal, "failed to scan bounty", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

const requestColumns = "id, bounty_id, hunter_id, message, status, created_at, updated_at"

func scanRequest(row interface{ Scan(...interface{}) error }) (*models.BountyRequest, error) {
	var (
		r                    models.BountyRequest
		id, bountyID, hunter string
		message              sql.NullString
	)
	err := row.Scan(&id, &bountyID, &hunter, &message, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = models.ID(id)
	r.BountyID = models.ID(bountyID)
	r.HunterID = models.ID(hunter)
	r.Message = message.String
	return &r, nil
}

// CreateRequest files a hunter's application to an open bounty.
func (s *BountyService) CreateRequest(ctx context.Context, hunterID models.ID, req *models.ApplyRequest) (*models.BountyRequest, error) {
	bounty, err := s.GetBounty(ctx, req.BountyID)
	if err != nil {
		return nil, err
	}
	if bounty.Status != models.BountyStatusOpen || bounty.Archived {
		return nil, database.NewError(database.CodeConflict, "bounty is not open for requests", nil)
	}
	if bounty.PosterID.Equal(hunterID) {
		return nil, database.NewError(database.CodePermission, "cannot apply to your own bounty", nil)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bounty_requests (id, bounty_id, hunter_id, message, status)
		 VALUES (?, ?, ?, ?, ?)`,
		id, req.BountyID.String(), hunterID.String(), req.Message, models.RequestStatusPending)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, database.NewError(database.CodeDuplicate, "already applied to this bounty", err)
		}
		return nil, database.NewError(database.CodeInternal, "failed to create request", err)
	}

	log.Printf("🙋 [REQUEST] Hunter %s applied to bounty %s", hunterID, req.BountyID)
	return s.GetRequest(ctx, models.ID(id))
}

// GetRequest returns one request by id.
func (s *BountyService) GetRequest(ctx context.Context, id models.ID) (*models.BountyRequest, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM bounty_requests WHERE id = ?", id.String())
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, database.NewError(database.CodeNotFound, "request not found", nil)
	}
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to load request", err)
	}
	return r, nil
}

// DeleteRequest removes a request. Used for both withdrawal (by the
// hunter) and rejection (by the poster).
func (s *BountyService) DeleteRequest(ctx context.Context, userID, id models.ID) error {
	r, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}

	if !r.HunterID.Equal(userID) {
		bounty, err := s.GetBounty(ctx, r.BountyID)
		if err != nil {
			return err
		}
		if !bounty.PosterID.Equal(userID) {
			return database.NewError(database.CodePermission, "not your request to delete", nil)
		}
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM bounty_requests WHERE id = ?", id.String())
	if err != nil {
		return database.NewError(database.CodeInternal, "failed to delete request", err)
	}
	return nil
}

// ListPendingForBounty returns the pending requests for one bounty.
func (s *BountyService) ListPendingForBounty(ctx context.Context, bountyID models.ID) ([]models.BountyRequest, error) {
	return s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM bounty_requests WHERE bounty_id = ? AND status = ? ORDER BY created_at",
		bountyID.String(), models.RequestStatusPending)
}

// ListPendingForBounties batches the pending-request lookup for several
// bounties in one query and returns the flattened result.
func (s *BountyService) ListPendingForBounties(ctx context.Context, bountyIDs []models.ID) ([]models.BountyRequest, error) {
	if len(bountyIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(bountyIDs))
	args := make([]interface{}, 0, len(bountyIDs)+1)
	for i, id := range bountyIDs {
		placeholders[i] = "?"
		args = append(args, id.String())
	}
	args = append(args, models.RequestStatusPending)

	return s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM bounty_requests WHERE bounty_id IN ("+
			strings.Join(placeholders, ",")+") AND status = ? ORDER BY created_at",
		args...)
}

// ListRequestsByHunter returns a hunter's own requests.
func (s *BountyService) ListRequestsByHunter(ctx context.Context, hunterID models.ID) ([]models.BountyRequest, error) {
	return s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM bounty_requests WHERE hunter_id = ? ORDER BY created_at DESC",
		hunterID.String())
}

func (s *BountyService) queryRequests(ctx context.Context, query string, args ...interface{}) ([]models.BountyRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.NewError(database.CodeInternal, "failed to list requests", err)
	}
	defer rows.Close()

	var out []models.BountyRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, database.NewError(database.CodeInternal, "failed to scan request", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// AcceptRequest atomically accepts a pending request: the bounty must
// still be open, the caller must be its poster. On success the bounty
// is in_progress with accepted_by set. A bounty already taken by a
// competing acceptance surfaces as a conflict error.
func (s *BountyService) AcceptRequest(ctx context.Context, posterID, requestID models.ID) (*models.BountyRequest, *models.Bounty, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, database.NewError(database.CodeInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM bounty_requests WHERE id = ? FOR UPDATE", requestID.String())
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil, database.NewError(database.CodeNotFound, "request not found", nil)
	}
	if err != nil {
		return nil, nil, database.NewError(database.CodeInternal, "failed to load request", err)
	}
	if req.Status != models.RequestStatusPending {
		return nil, nil, database.NewError(database.CodeConflict, "request is no longer pending", nil)
	}

	row = tx.QueryRowContext(ctx,
		"SELECT "+bountyColumns+" FROM bounties WHERE id = ? AND deleted = FALSE FOR UPDATE",
		req.BountyID.String())
	bounty, err := scanBounty(row)
	if err == sql.ErrNoRows {
		return nil, nil, database.NewError(database.CodeNotFound, "bounty not found", nil)
	}
	if err != nil {
		return nil, nil, database.NewError(database.CodeInternal, "failed to load bounty", err)
	}
	if !bounty.PosterID.Equal(posterID) {
		return nil, nil, database.NewError(database.CodePermission, "only the poster can accept requests", nil)
	}
	if bounty.Status != models.BountyStatusOpen {
		return nil, nil, database.NewError(database.CodeConflict, "bounty already accepted", nil)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bounty_requests SET status = ? WHERE id = ?",
		models.RequestStatusAccepted, requestID.String()); err != nil {
		return nil, nil, database.NewError(database.CodeInternal, "failed to accept request", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bounties SET status = ?, accepted_by = ? WHERE id = ?",
		models.BountyStatusInProgress, req.HunterID.String(), bounty.ID.String()); err != nil {
		return nil, nil, database.NewError(database.CodeInternal, "failed to update bounty", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, database.NewError(database.CodeInternal, "failed to commit acceptance", err)
	}

	req.Status = models.RequestStatusAccepted
	bounty.Status = models.BountyStatusInProgress
	bounty.AcceptedBy = req.HunterID

	log.Printf("🤝 [REQUEST] Accepted request %s: bounty %s -> hunter %s", requestID, bounty.ID, req.HunterID)
	return req, bounty, nil
}

// DeleteCompetingRequests removes every pending request for the bounty
// except the accepted one. Competitors are matched on the bounty
// reference; the accepted request is excluded by id.
func (s *BountyService) DeleteCompetingRequests(ctx context.Context, bountyID, exceptRequestID models.ID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM bounty_requests WHERE bounty_id = ? AND id <> ? AND status = ?",
		bountyID.String(), exceptRequestID.String(), models.RequestStatusPending)
	if err != nil {
		return 0, database.NewError(database.CodeInternal, "failed to delete competing requests", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// LoadBoard assembles the authoritative board view for a user: pending
// requests across their open postings (batched), their postings, and
// their in-progress hunts.
func (s *BountyService) LoadBoard(ctx context.Context, userID models.ID) (*models.BoardView, error) {
	postings, err := s.ListMyPostings(ctx, userID)
	if err != nil {
		return nil, err
	}

	openIDs := make([]models.ID, 0, len(postings))
	for _, b := range postings {
		if b.Status == models.BountyStatusOpen {
			openIDs = append(openIDs, b.ID)
		}
	}

	pending, err := s.ListPendingForBounties(ctx, openIDs)
	if err != nil {
		return nil, err
	}

	inProgress, err := s.ListInProgressFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.BoardView{
		Pending:    pending,
		MyPostings: postings,
		InProgress: inProgress,
	}, nil
}
