package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	model "github.com/kangwooc/spring-batch/pkg/batch/core/domain/model"
	"github.com/kangwooc/spring-batch/pkg/batch/listener/notification"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func finishedExecution() *model.JobExecution {
	params := model.NewJobParameters()
	je := model.NewJobExecution(model.NewJobInstance("importJob", params), params)
	je.MarkAsStarted()
	se := model.NewStepExecution("load", je)
	se.ReadCount, se.WriteCount, se.ReadSkipCount = 10, 9, 1
	se.MarkAsCompleted()
	je.StepExecutions = append(je.StepExecutions, se)
	je.MarkAsCompleted()
	return je
}

func TestAMQPNotifier_PublishesJSONEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := notification.NewAMQPNotifierWithPublisher(pub, "", "")
	je := finishedExecution()

	require.NoError(t, n.NotifyJobCompletion(context.Background(), je))
	require.Len(t, pub.sent, 1)
	sent := pub.sent[0]
	assert.Equal(t, notification.DefaultExchange, sent.exchange)
	assert.Equal(t, notification.DefaultRoutingKey, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, je.ID, sent.msg.MessageId)

	var event notification.JobCompletionEvent
	require.NoError(t, json.Unmarshal(sent.msg.Body, &event))
	assert.Equal(t, "importJob", event.JobName)
	assert.Equal(t, "COMPLETED", event.Status)
	require.Len(t, event.Steps, 1)
	assert.Equal(t, 1, event.Steps[0].SkipCount)
}

func TestAMQPNotifier_NotConnected(t *testing.T) {
	n := notification.NewAMQPNotifier(config.AMQPConfig{URL: "amqp://localhost"})
	assert.Error(t, n.NotifyJobCompletion(context.Background(), finishedExecution()))
	assert.NoError(t, n.Close())
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) NotifyJobCompletion(ctx context.Context, je *model.JobExecution) error {
	f.calls++
	return errors.New("broker down")
}

func TestListener_DeliveryFailureDoesNotChangeJob(t *testing.T) {
	n := &failingNotifier{}
	je := finishedExecution()
	l := notification.NewListener(n)

	l.BeforeJob(context.Background(), je)
	l.AfterJob(context.Background(), je)

	assert.Equal(t, 1, n.calls)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
}

func TestNewNotifier_DefaultsToLog(t *testing.T) {
	var n notification.Notifier
	app := fxtest.New(t, fx.Supply(config.NewConfig()), notification.Module, fx.Populate(&n))
	app.RequireStart()
	defer app.RequireStop()

	assert.IsType(t, &notification.LogNotifier{}, n)
	assert.NoError(t, n.NotifyJobCompletion(context.Background(), finishedExecution()))
}
