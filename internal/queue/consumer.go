package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tessera-live/ticket-reservation/internal/logger"
)

// StartOrderConsumer connects to RabbitMQ, declares the order.completed
// queue and consumes it, appending each order to logs/orders.log in a
// single-line format.  It runs a reconnect loop with backoff and never
// returns; processing errors are logged and the offending message rejected
// so the consumer keeps operating.
func StartOrderConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			logger.Get().Warnw("order-consumer dial failed", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn); err != nil {
			logger.Get().Warnw("order-consumer loop ended", "error", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Get().Warnw("order-consumer set qos failed", "error", err)
	}

	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			logger.Get().Warnw("order-consumer handle message failed", "error", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev OrderCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "orders.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := make([]string, 0, len(ev.SeatIDs))
	for _, id := range ev.SeatIDs {
		seats = append(seats, strconv.FormatUint(id, 10))
	}
	line := fmt.Sprintf("[%s] Order completed | order_id=%d | user_id=%d | event_id=%d | total=%d cents | seats=[%s]\n",
		ev.CompletedAt, ev.OrderID, ev.UserID, ev.EventID, ev.TotalCents, strings.Join(seats, ","))

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
