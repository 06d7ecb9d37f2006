package broker

import (
	"context"
	"encoding/json"
	"time"

	"participant-import-backend/internal/services/importrequest"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 2 * time.Second

// Publisher sends import request lifecycle events to a durable queue.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(uri, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

// PublishEvent sends evt as JSON. The event type is also set as a header so
// consumers can route without decoding the body.
func (p *Publisher) PublishEvent(ctx context.Context, evt importrequest.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	headers := amqp.Table{
		"event_type":        evt.Type,
		"import_request_id": evt.ImportRequestID,
		"event_id":          evt.EventID,
	}
	return p.publish(ctx, "application/json", body, headers)
}

func (p *Publisher) publish(ctx context.Context, contentType string, body []byte, headers amqp.Table) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := p.ch.PublishWithContext(
		ctx,
		"",      // default exchange
		p.queue, // routing key is the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			Headers:      headers,
		},
	)
	return errors.Wrap(err, "publish to rabbitmq")
}

func (p *Publisher) Close() error {
	var errCh, errConn error
	if p.ch != nil {
		errCh = p.ch.Close()
	}
	if p.conn != nil {
		errConn = p.conn.Close()
	}
	if errCh != nil {
		return errCh
	}
	return errConn
}
