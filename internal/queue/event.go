// Package queue defines message payloads exchanged over the message broker.
package queue

const (
    // PaymentProcessedQueue receives one event per approved or rejected payment.
    PaymentProcessedQueue = "payment.processed"
    // PasswordResetQueue feeds the mailer that delivers reset codes.
    PasswordResetQueue = "password.reset.requested"
)

// PaymentProcessedEvent is published when an admin approves or rejects a
// payment.  It carries enough for downstream consumers (enrollment, receipts,
// audit) to act without querying the primary database.
type PaymentProcessedEvent struct {
    PaymentID       string `json:"payment_id"`
    StudentID       string `json:"student_id"`
    CourseID        string `json:"course_id"`
    ReferenceNumber string `json:"reference_number"`
    Status          string `json:"status"`
    ProcessedBy     string `json:"processed_by"`
    ProcessedAt     string `json:"processed_at"`
}

// PasswordResetRequestedEvent asks the mailer to deliver a reset code.
type PasswordResetRequestedEvent struct {
    UserID    string `json:"user_id"`
    Email     string `json:"email"`
    Name      string `json:"name"`
    Code      string `json:"code"`
    ExpiresAt string `json:"expires_at"`
}
