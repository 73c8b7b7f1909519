package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// PaymentLogConsumer drains PaymentProcessedQueue and appends one line per
// event to <Dir>/payments.log.
type PaymentLogConsumer struct {
    URL string
    Dir string
    Log *zap.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are redialled with exponential backoff capped at 30s.
func (c *PaymentLogConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("payment consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("payment consumer loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *PaymentLogConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("payment consumer set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(PaymentProcessedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(PaymentProcessedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.Log.Error("payment consumer handle failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and appends it to the log file.
func (c *PaymentLogConsumer) Handle(body []byte) error {
    var ev PaymentProcessedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.PaymentID == "" || ev.Status == "" {
        return errors.New("event missing payment_id or status")
    }
    if err := os.MkdirAll(c.Dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.Dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.Dir, "payments.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] Payment %s | payment_id=%s | reference=%q | student_id=%s | course_id=%s | by=%s\n",
        ev.ProcessedAt, ev.Status, ev.PaymentID, ev.ReferenceNumber, ev.StudentID, ev.CourseID, ev.ProcessedBy)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
