package queue

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher sends domain events to RabbitMQ, dialing once per publish.
// Errors are logged and returned; callers treat publishing as best effort.
type Publisher struct {
    url string
    log *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log}
}

// PublishBookingPaid publishes ev to the booking.paid queue as a
// persistent JSON message.
func (p *Publisher) PublishBookingPaid(ctx context.Context, ev BookingPaidEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    return p.publish(ctx, BookingPaidQueue, body)
}

func (p *Publisher) publish(ctx context.Context, queueName string, body []byte) error {
    log := p.log.With(zap.String("queue", queueName))
    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Warn("rabbitmq dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Warn("rabbitmq channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
        log.Warn("rabbitmq queue declare failed", zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    uuid.NewString(),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
        log.Warn("rabbitmq publish failed", zap.Error(err))
        return err
    }
    log.Debug("event published", zap.String("message_id", pub.MessageId))
    return nil
}
