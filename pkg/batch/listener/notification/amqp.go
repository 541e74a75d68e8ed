package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// Defaults of the AMQP notifier.
const (
	DefaultExchange   = "batch.events"
	DefaultRoutingKey = "job.completed"
)

// Publisher is the part of *amqp.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes a JSON JobCompletionEvent to a topic exchange.
type AMQPNotifier struct {
	cfg config.AMQPConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	pub     Publisher
}

var _ Notifier = (*AMQPNotifier)(nil)

func NewAMQPNotifier(cfg config.AMQPConfig) *AMQPNotifier {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = DefaultRoutingKey
	}
	return &AMQPNotifier{cfg: cfg}
}

// NewAMQPNotifierWithPublisher publishes through an already open channel.
func NewAMQPNotifierWithPublisher(pub Publisher, exchange, routingKey string) *AMQPNotifier {
	n := NewAMQPNotifier(config.AMQPConfig{Exchange: exchange, RoutingKey: routingKey})
	n.pub = pub
	return n
}

// Connect dials the broker and declares the exchange.
func (n *AMQPNotifier) Connect(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pub != nil {
		return nil
	}
	conn, err := amqp.DialConfig(n.cfg.URL, amqp.Config{Heartbeat: 10 * time.Second, Locale: "en_US"})
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", n.cfg.Exchange, err)
	}
	n.conn, n.channel, n.pub = conn, ch, ch
	logger.Infof("Notification: publishing job completions to exchange '%s' (routing key '%s').", n.cfg.Exchange, n.cfg.RoutingKey)
	return nil
}

func (n *AMQPNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) error {
	n.mu.Lock()
	pub := n.pub
	n.mu.Unlock()
	if pub == nil {
		return fmt.Errorf("AMQP notifier is not connected")
	}

	body, err := json.Marshal(NewJobCompletionEvent(execution))
	if err != nil {
		return fmt.Errorf("failed to encode job completion event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = pub.PublishWithContext(ctx, n.cfg.Exchange, n.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    execution.ID,
		Timestamp:    time.Now(),
		Type:         "JobCompletionEvent",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish job completion event: %w", err)
	}
	logger.Debugf("Notification: published completion of Job '%s' (ID: %s).", execution.JobName, execution.ID)
	return nil
}

// Close closes the channel and connection opened by Connect.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var err error
	if n.channel != nil {
		err = n.channel.Close()
	}
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	n.conn, n.channel, n.pub = nil, nil, nil
	return err
}
