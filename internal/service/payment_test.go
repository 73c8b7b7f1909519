package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-class-gate/internal/model"
	"github.com/iliyamo/online-class-gate/internal/queue"
	"github.com/iliyamo/online-class-gate/internal/repository"
)

// memPayments mimics the conditional UPDATE of the MySQL repository.
type memPayments struct {
	mu       sync.Mutex
	payments map[string]model.Payment
	writes   map[string]int
}

func newMemPayments(ps ...model.Payment) *memPayments {
	m := &memPayments{payments: map[string]model.Payment{}, writes: map[string]int{}}
	for _, p := range ps {
		m.payments[p.ID] = p
	}
	return m
}

func (m *memPayments) Create(_ context.Context, studentID, courseID, ref, receipt string) (model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ReferenceNumber == ref {
			return model.Payment{}, repository.ErrDuplicateReference
		}
	}
	p := model.Payment{ID: "p" + ref, StudentID: studentID, CourseID: courseID, ReferenceNumber: ref, ReceiptURL: receipt, Status: model.PaymentPending}
	m.payments[p.ID] = p
	return p, nil
}

func (m *memPayments) TransitionFromPending(_ context.Context, id string, to model.PaymentStatus, at time.Time) (model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.Status != model.PaymentPending {
		return model.Payment{}, repository.ErrNotFoundOrAlreadyProcessed
	}
	p.Status = to
	p.UpdatedAt = at
	m.payments[id] = p
	m.writes[id]++
	return p, nil
}

func (m *memPayments) FindByReference(_ context.Context, ref string) (model.PaymentVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ReferenceNumber == ref {
			return model.PaymentVerification{
				Payment: p,
				Student: model.PaymentStudent{ID: p.StudentID, Name: "Sara"},
				Course:  model.PaymentCourse{ID: p.CourseID, Title: "Go Basics"},
			}, nil
		}
	}
	return model.PaymentVerification{}, repository.ErrPaymentNotFound
}

func (m *memPayments) List(_ context.Context, status model.PaymentStatus, _ int) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Payment{}
	for _, p := range m.payments {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.PaymentProcessedEvent
	err    error
}

func (r *recordingEvents) PublishPaymentProcessed(_ context.Context, ev queue.PaymentProcessedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

var created = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func pendingPayment() model.Payment {
	return model.Payment{
		ID: "p1", StudentID: "u1", CourseID: "c1", ReferenceNumber: "REF-1001",
		ReceiptURL: "https://r/1.png", Status: model.PaymentPending, CreatedAt: created, UpdatedAt: created,
	}
}

func TestRejectScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemPayments(pendingPayment())
	events := &recordingEvents{}
	w := NewPaymentWorkflow(store, events, nil)

	v, err := w.LookupByReference(ctx, "REF-1001")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, v.Payment.Status)

	p, err := w.Reject(ctx, "p1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRejected, p.Status)

	_, err = w.Reject(ctx, "p1", "admin-1")
	assert.ErrorIs(t, err, repository.ErrNotFoundOrAlreadyProcessed)

	v, err = w.LookupByReference(ctx, "REF-1001")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRejected, v.Payment.Status)

	require.Len(t, events.events, 1)
	assert.Equal(t, "REJECTED", events.events[0].Status)
	assert.Equal(t, "admin-1", events.events[0].ProcessedBy)
	assert.Equal(t, "REF-1001", events.events[0].ReferenceNumber)
}

func TestTerminalPaymentsAreImmutable(t *testing.T) {
	ctx := context.Background()
	for _, status := range []model.PaymentStatus{model.PaymentApproved, model.PaymentRejected} {
		p := pendingPayment()
		p.Status = status
		store := newMemPayments(p)
		w := NewPaymentWorkflow(store, nil, nil)

		_, err := w.Approve(ctx, "p1", "admin-1")
		assert.ErrorIs(t, err, repository.ErrNotFoundOrAlreadyProcessed)
		_, err = w.Reject(ctx, "p1", "admin-1")
		assert.ErrorIs(t, err, repository.ErrNotFoundOrAlreadyProcessed)

		assert.Equal(t, status, store.payments["p1"].Status)
		assert.Equal(t, created, store.payments["p1"].UpdatedAt)
	}
}

func TestTransitionUnknownPayment(t *testing.T) {
	w := NewPaymentWorkflow(newMemPayments(), nil, nil)

	_, err := w.Approve(context.Background(), "missing", "admin-1")
	assert.ErrorIs(t, err, repository.ErrNotFoundOrAlreadyProcessed)
	_, err = w.Approve(context.Background(), " ", "admin-1")
	assert.ErrorIs(t, err, repository.ErrNotFoundOrAlreadyProcessed)
}

func TestConcurrentApproveRejectSingleWinner(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 50; round++ {
		store := newMemPayments(pendingPayment())
		w := NewPaymentWorkflow(store, &recordingEvents{}, nil)

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			results [2]model.Payment
			errs    [2]error
		)
		ops := []func() (model.Payment, error){
			func() (model.Payment, error) { return w.Approve(ctx, "p1", "admin-a") },
			func() (model.Payment, error) { return w.Reject(ctx, "p1", "admin-b") },
		}
		for i, op := range ops {
			wg.Add(1)
			go func(i int, op func() (model.Payment, error)) {
				defer wg.Done()
				<-start
				results[i], errs[i] = op()
			}(i, op)
		}
		close(start)
		wg.Wait()

		winners := 0
		var won model.Payment
		for i := range errs {
			if errs[i] == nil {
				winners++
				won = results[i]
			} else {
				assert.ErrorIs(t, errs[i], repository.ErrNotFoundOrAlreadyProcessed)
			}
		}
		require.Equal(t, 1, winners)
		assert.Equal(t, won.Status, store.payments["p1"].Status)
		assert.Equal(t, 1, store.writes["p1"])
	}
}

func TestPublishFailureKeepsTransition(t *testing.T) {
	store := newMemPayments(pendingPayment())
	w := NewPaymentWorkflow(store, &recordingEvents{err: errors.New("broker down")}, nil)

	p, err := w.Approve(context.Background(), "p1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentApproved, p.Status)
	assert.Equal(t, model.PaymentApproved, store.payments["p1"].Status)
}

func TestTransitionStampsUpdatedAt(t *testing.T) {
	store := newMemPayments(pendingPayment())
	w := NewPaymentWorkflow(store, nil, nil)
	reviewed := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return reviewed }

	p, err := w.Approve(context.Background(), "p1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, reviewed, p.UpdatedAt)
	assert.Equal(t, created, p.CreatedAt)
}

func TestLookupByReferenceUnknown(t *testing.T) {
	w := NewPaymentWorkflow(newMemPayments(pendingPayment()), nil, nil)

	_, err := w.LookupByReference(context.Background(), "REF-9999")
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
	_, err = w.LookupByReference(context.Background(), "")
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	w := NewPaymentWorkflow(newMemPayments(), nil, nil)

	p, err := w.Submit(ctx, "u1", "c1", " REF-7 ", "https://r/7.png")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, "REF-7", p.ReferenceNumber)

	_, err = w.Submit(ctx, "u2", "c1", "REF-7", "https://r/8.png")
	assert.ErrorIs(t, err, repository.ErrDuplicateReference)

	_, err = w.Submit(ctx, "u1", "c1", "", "https://r/8.png")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestList(t *testing.T) {
	approved := pendingPayment()
	approved.ID, approved.ReferenceNumber, approved.Status = "p2", "REF-2", model.PaymentApproved
	w := NewPaymentWorkflow(newMemPayments(pendingPayment(), approved), nil, nil)

	list, err := w.List(context.Background(), model.PaymentPending, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)

	_, err = w.List(context.Background(), model.PaymentStatus("LOST"), 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
