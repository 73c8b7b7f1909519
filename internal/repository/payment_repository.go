package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/online-class-gate/internal/model"
)

const paymentColumns = "id,student_id,course_id,reference_number,receipt_url,status,created_at,updated_at"

// PaymentRepo persists payment submissions.  Status changes only go through
// TransitionFromPending, a single conditional UPDATE, so two concurrent
// reviews of the same payment can never both succeed.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// Create inserts a PENDING payment and returns it with generated fields set.
func (r *PaymentRepo) Create(ctx context.Context, studentID, courseID, reference, receiptURL string) (model.Payment, error) {
	now := time.Now().UTC()
	p := model.Payment{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		CourseID:        courseID,
		ReferenceNumber: strings.TrimSpace(reference),
		ReceiptURL:      strings.TrimSpace(receiptURL),
		Status:          model.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO payments (id, student_id, course_id, reference_number, receipt_url, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.StudentID, p.CourseID, p.ReferenceNumber, p.ReceiptURL, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Payment{}, ErrDuplicateReference
		}
		return model.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (model.Payment, error) {
	return getPayment(ctx, r.DB, id)
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getPayment(ctx context.Context, q queryRower, id string) (model.Payment, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=? LIMIT 1", id)
	var p model.Payment
	if err := scanPayment(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// TransitionFromPending moves a PENDING payment to status `to` and stamps
// updated_at.  The status predicate is part of the UPDATE itself; when no
// row matches (unknown id or already reviewed) ErrNotFoundOrAlreadyProcessed
// is returned and nothing is written.
func (r *PaymentRepo) TransitionFromPending(ctx context.Context, id string, to model.PaymentStatus, at time.Time) (model.Payment, error) {
	if !model.PaymentPending.CanTransitionTo(to) {
		return model.Payment{}, fmt.Errorf("transition payment: %s is not reachable from %s", to, model.PaymentPending)
	}
	// The UPDATE and its read-back commit together: a failed read rolls the
	// transition back so the payment stays PENDING and can be reviewed again.
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Payment{}, fmt.Errorf("transition payment: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE payments SET status=?, updated_at=? WHERE id=? AND status=?",
		string(to), at.UTC(), id, string(model.PaymentPending))
	if err != nil {
		return model.Payment{}, fmt.Errorf("transition payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Payment{}, fmt.Errorf("transition payment: %w", err)
	}
	if n == 0 {
		return model.Payment{}, ErrNotFoundOrAlreadyProcessed
	}
	p, err := getPayment(ctx, tx, id)
	if err != nil {
		return model.Payment{}, fmt.Errorf("transition payment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Payment{}, fmt.Errorf("transition payment: commit: %w", err)
	}
	return p, nil
}

// FindByReference returns the payment with its student and course.
func (r *PaymentRepo) FindByReference(ctx context.Context, reference string) (model.PaymentVerification, error) {
	const q = `SELECT p.id, p.student_id, p.course_id, p.reference_number, p.receipt_url, p.status, p.created_at, p.updated_at,
	                  u.id, u.name, u.email,
	                  c.id, c.title
	           FROM payments p
	           JOIN users u ON u.id = p.student_id
	           JOIN courses c ON c.id = p.course_id
	           WHERE p.reference_number = ?
	           LIMIT 1`
	var (
		v      model.PaymentVerification
		status string
	)
	err := r.DB.QueryRowContext(ctx, q, strings.TrimSpace(reference)).Scan(
		&v.Payment.ID, &v.Payment.StudentID, &v.Payment.CourseID, &v.Payment.ReferenceNumber,
		&v.Payment.ReceiptURL, &status, &v.Payment.CreatedAt, &v.Payment.UpdatedAt,
		&v.Student.ID, &v.Student.Name, &v.Student.Email,
		&v.Course.ID, &v.Course.Title,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PaymentVerification{}, ErrPaymentNotFound
	}
	if err != nil {
		return model.PaymentVerification{}, fmt.Errorf("find payment by reference: %w", err)
	}
	v.Payment.Status = model.PaymentStatus(status)
	return v, nil
}

// List returns payments newest first, optionally filtered by status.
func (r *PaymentRepo) List(ctx context.Context, status model.PaymentStatus, limit int) ([]model.Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := "SELECT " + paymentColumns + " FROM payments"
	args := []interface{}{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, string(status))
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("list payments: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(s rowScanner, p *model.Payment) error {
	var status string
	if err := s.Scan(&p.ID, &p.StudentID, &p.CourseID, &p.ReferenceNumber, &p.ReceiptURL, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	p.Status = model.PaymentStatus(status)
	return nil
}
