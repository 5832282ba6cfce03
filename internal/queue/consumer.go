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

// Consumer listens on booking.paid and appends one line per event to a
// log file (logs/booking.log by default).
type Consumer struct {
    url     string
    logPath string
    log     *zap.Logger
}

// NewConsumer returns a Consumer writing to logPath.
func NewConsumer(url, logPath string, log *zap.Logger) *Consumer {
    if logPath == "" {
        logPath = filepath.Join("logs", "booking.log")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, logPath: logPath, log: log.Named("booking-consumer")}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s; a bad
// message is rejected without requeue so it cannot wedge the loop.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
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
        c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
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

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(BookingPaidQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BookingPaidQueue, "", false, false, false, false, nil)
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
                c.log.Error("handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one booking.paid message and appends it to the log file.
func (c *Consumer) Handle(body []byte) error {
    var ev BookingPaidEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.BookingID == 0 {
        return errors.New("event has no booking id")
    }
    if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single human-friendly log line.
func FormatLine(ev BookingPaidEvent) string {
    return fmt.Sprintf("[%s] Booking paid | booking_id=%d | room_id=%d | guest=%q | email=%s | stay=%s..%s | guests=%d | total=%.2f %s | gateway=%s | order=%s | payment=%s\n",
        ev.PaidAt, ev.BookingID, ev.RoomID, ev.GuestName, ev.GuestEmail, ev.ArrivalDate, ev.DepartureDate,
        ev.Guests, ev.Amount, ev.Currency, ev.Gateway, ev.OrderID, ev.PaymentID)
}
