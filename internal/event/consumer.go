package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"chemviz/internal/config"
	"chemviz/pkg/log"
)

// HandlerFunc processes one decoded event. Returning an error requeues the
// message until nsq gives up.
type HandlerFunc func(ctx context.Context, e *Event) error

type Consumer struct {
	conf     config.NSQConfig
	ctx      context.Context
	cancel   context.CancelFunc
	consumer *nsq.Consumer
	handler  HandlerFunc
	wg       sync.WaitGroup
	logger   *logrus.Entry
}

func NewConsumer(conf config.NSQConfig, channel string, handler HandlerFunc) (*Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	logger := log.GetLogger(ctx).WithField("component", "consumer")

	nsqConfig := nsq.NewConfig()
	nsqConfig.MsgTimeout = time.Minute
	nsqConfig.MaxInFlight = 10
	nsqConfig.MaxAttempts = 3

	consumer, err := nsq.NewConsumer(conf.Topic, channel, nsqConfig)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create NSQ consumer: %w", err)
	}

	c := &Consumer{
		conf:     conf,
		ctx:      ctx,
		cancel:   cancel,
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
	consumer.AddHandler(c)

	return c, nil
}

func (c *Consumer) HandleMessage(message *nsq.Message) error {
	return c.handle(message.Body)
}

func (c *Consumer) handle(body []byte) error {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		// a malformed message never gets better, drop it
		c.logger.WithError(err).Errorf("unmarshal event failed: %s", string(body))
		return nil
	}

	c.logger.WithFields(logrus.Fields{
		"type":       e.Type,
		"datasetIds": e.DatasetIds,
	}).Debug("processing dataset event")

	if err := c.handler(c.ctx, &e); err != nil {
		c.logger.WithError(err).Errorf("handle %s event failed", e.Type)
		return err
	}
	return nil
}

func (c *Consumer) Start() error {
	c.logger.Infof("starting NSQ consumer on topic %s", c.conf.Topic)

	if err := c.consumer.ConnectToNSQD(c.conf.NSQDAddr); err != nil {
		return fmt.Errorf("failed to connect to nsqd: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.consumer.Stop()
		<-c.consumer.StopChan
	}()

	return nil
}

func (c *Consumer) Stop() {
	c.cancel()
	c.wg.Wait()
}
