// Package service holds the payment review workflow and password recovery.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/online-class-gate/internal/model"
	"github.com/iliyamo/online-class-gate/internal/queue"
	"github.com/iliyamo/online-class-gate/internal/repository"
)

// ErrInvalidInput marks a request the workflow refuses before touching storage.
var ErrInvalidInput = errors.New("invalid input")

// PaymentStore is the persistence the workflow needs.  TransitionFromPending
// must apply the write only while the stored status is PENDING, as a single
// atomic step, and report repository.ErrNotFoundOrAlreadyProcessed otherwise.
type PaymentStore interface {
	Create(ctx context.Context, studentID, courseID, reference, receiptURL string) (model.Payment, error)
	TransitionFromPending(ctx context.Context, id string, to model.PaymentStatus, at time.Time) (model.Payment, error)
	FindByReference(ctx context.Context, reference string) (model.PaymentVerification, error)
	List(ctx context.Context, status model.PaymentStatus, limit int) ([]model.Payment, error)
}

// PaymentEvents receives review outcomes.
type PaymentEvents interface {
	PublishPaymentProcessed(ctx context.Context, ev queue.PaymentProcessedEvent) error
}

// PaymentWorkflow owns payment submission and review.
type PaymentWorkflow struct {
	store  PaymentStore
	events PaymentEvents
	log    *zap.Logger
	now    func() time.Time
}

// NewPaymentWorkflow wires a workflow.  events may be nil to disable
// publishing.
func NewPaymentWorkflow(store PaymentStore, events PaymentEvents, log *zap.Logger) *PaymentWorkflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentWorkflow{store: store, events: events, log: log, now: time.Now}
}

// Submit records a student's payment receipt in PENDING state.
func (w *PaymentWorkflow) Submit(ctx context.Context, studentID, courseID, reference, receiptURL string) (model.Payment, error) {
	reference = strings.TrimSpace(reference)
	if studentID == "" || courseID == "" || reference == "" || strings.TrimSpace(receiptURL) == "" {
		return model.Payment{}, fmt.Errorf("%w: submit payment: missing field", ErrInvalidInput)
	}
	p, err := w.store.Create(ctx, studentID, courseID, reference, receiptURL)
	if err != nil {
		return model.Payment{}, err
	}
	w.log.Info("payment submitted",
		zap.String("payment_id", p.ID),
		zap.String("student_id", studentID),
		zap.String("reference", reference))
	return p, nil
}

// Approve moves a PENDING payment to APPROVED.
func (w *PaymentWorkflow) Approve(ctx context.Context, paymentID, actorID string) (model.Payment, error) {
	return w.transition(ctx, paymentID, actorID, model.PaymentApproved)
}

// Reject moves a PENDING payment to REJECTED.
func (w *PaymentWorkflow) Reject(ctx context.Context, paymentID, actorID string) (model.Payment, error) {
	return w.transition(ctx, paymentID, actorID, model.PaymentRejected)
}

func (w *PaymentWorkflow) transition(ctx context.Context, paymentID, actorID string, to model.PaymentStatus) (model.Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return model.Payment{}, repository.ErrNotFoundOrAlreadyProcessed
	}
	p, err := w.store.TransitionFromPending(ctx, paymentID, to, w.now().UTC())
	if err != nil {
		return model.Payment{}, err
	}
	w.log.Info("payment reviewed",
		zap.String("payment_id", p.ID),
		zap.String("status", string(p.Status)),
		zap.String("actor_id", actorID))

	if w.events != nil {
		ev := queue.PaymentProcessedEvent{
			PaymentID:       p.ID,
			StudentID:       p.StudentID,
			CourseID:        p.CourseID,
			ReferenceNumber: p.ReferenceNumber,
			Status:          string(p.Status),
			ProcessedBy:     actorID,
			ProcessedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		// The transition is committed; a lost event must not undo it.
		if err := w.events.PublishPaymentProcessed(ctx, ev); err != nil {
			w.log.Warn("publish payment event failed", zap.String("payment_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}

// LookupByReference returns the payment with its student and course.  It
// never changes state.
func (w *PaymentWorkflow) LookupByReference(ctx context.Context, reference string) (model.PaymentVerification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return model.PaymentVerification{}, repository.ErrPaymentNotFound
	}
	return w.store.FindByReference(ctx, reference)
}

// List returns payments for the admin review queue.
func (w *PaymentWorkflow) List(ctx context.Context, status model.PaymentStatus, limit int) ([]model.Payment, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, status)
	}
	return w.store.List(ctx, status, limit)
}
