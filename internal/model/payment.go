package model

import "time"

// PaymentStatus is the review state of a payment submission.
type PaymentStatus string

const (
    PaymentPending  PaymentStatus = "PENDING"
    PaymentApproved PaymentStatus = "APPROVED"
    PaymentRejected PaymentStatus = "REJECTED"
)

// paymentTransitions lists the allowed next states.  Terminal states map to
// an empty list.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
    PaymentPending:  {PaymentApproved, PaymentRejected},
    PaymentApproved: {},
    PaymentRejected: {},
}

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
    _, ok := paymentTransitions[s]
    return ok
}

// Terminal reports whether no transition leaves s.
func (s PaymentStatus) Terminal() bool {
    next, ok := paymentTransitions[s]
    return ok && len(next) == 0
}

// CanTransitionTo reports whether s -> to is an edge of the state machine.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
    for _, n := range paymentTransitions[s] {
        if n == to {
            return true
        }
    }
    return false
}

// Payment mirrors the `payments` table.  A payment is created PENDING by a
// student submission and leaves PENDING exactly once.
type Payment struct {
    ID              string        `json:"id"`
    StudentID       string        `json:"student_id"`
    CourseID        string        `json:"course_id"`
    ReferenceNumber string        `json:"reference_number"`
    ReceiptURL      string        `json:"receipt_url"`
    Status          PaymentStatus `json:"status"`
    CreatedAt       time.Time     `json:"created_at"`
    UpdatedAt       time.Time     `json:"updated_at"`
}

// PaymentStudent is the slice of the submitting user exposed by a
// verification lookup.
type PaymentStudent struct {
    ID    string `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
}

// PaymentCourse is the slice of the purchased course exposed by a
// verification lookup.
type PaymentCourse struct {
    ID    string `json:"id"`
    Title string `json:"title"`
}

// PaymentVerification joins a payment with its student and course.
type PaymentVerification struct {
    Payment Payment        `json:"payment"`
    Student PaymentStudent `json:"student"`
    Course  PaymentCourse  `json:"course"`
}
