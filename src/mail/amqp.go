package mail

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Queue is the RabbitMQ backed outbox. The same type publishes from the API
// and consumes in the mailer.
type Queue struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func DialQueue(url, exchangeName, queueName string) (*Queue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q := &Queue{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := q.setup(); err != nil {
		q.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return q, nil
}

func (q *Queue) setup() error {
	err := q.channel.ExchangeDeclare(
		q.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name
	if err := q.channel.QueueBind(q.queueName, q.queueName, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (q *Queue) Enqueue(ctx context.Context, m Message) error {
	body, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(
		ctx,
		q.exchangeName, // exchange
		q.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	log.Printf("INFO: Queued mail to %s on %s", m.To, q.queueName)
	return nil
}

// requeueDelay spaces out retries of a failed send so a dead SMTP host is
// not hammered.
var requeueDelay = 5 * time.Second

// Consume delivers queued messages through sender until ctx is cancelled.
// Malformed messages are dropped. A failed send is requeued once; if the
// redelivery fails too the message is dropped.
func (q *Queue) Consume(ctx context.Context, sender Sender) error {
	deliveries, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	log.Printf("INFO: Consuming mail from %s", q.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			process(ctx, d.Body, d.Redelivered, d, sender)
		}
	}
}

// acknowledger is satisfied by amqp091.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func process(ctx context.Context, body []byte, redelivered bool, ack acknowledger, sender Sender) {
	m, err := MessageFromJSON(body)
	if err != nil {
		log.Printf("ERROR: Dropping malformed mail message: %v", err)
		logSettle("nack", ack.Nack(false, false))
		return
	}

	if err := sender.Send(ctx, m); err != nil {
		if redelivered {
			log.Printf("ERROR: Dropping mail to %s after retry: %v", m.To, err)
			logSettle("nack", ack.Nack(false, false))
			return
		}
		log.Printf("ERROR: Failed to send mail to %s, requeueing: %v", m.To, err)
		select {
		case <-ctx.Done():
		case <-time.After(requeueDelay):
		}
		logSettle("nack", ack.Nack(false, true))
		return
	}
	logSettle("ack", ack.Ack(false))
}

func logSettle(action string, err error) {
	if err != nil {
		log.Printf("ERROR: Failed to %s mail delivery: %v", action, err)
	}
}

func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
