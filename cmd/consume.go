package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chemviz/internal/event"
)

var consumeChannel string

var consumeCommand = &cobra.Command{
	Use:   "consume",
	Short: "Consume dataset events and drop cached reports of removed datasets",
	Run: func(cmd *cobra.Command, args []string) {
		runConsume()
	},
}

func runConsume() {
	conf := mustInitConfig()
	if !conf.NSQ.Enabled {
		logrus.Fatal("nsq is disabled in config")
	}

	db := mustInitDB(conf)
	defer closeDB(db)

	datasets, release := newDatasetService(context.Background(), conf)
	defer release()

	consumer, err := event.NewConsumer(conf.NSQ, consumeChannel, datasets.HandleEvent)
	if err != nil {
		logrus.Fatalf("failed to create consumer: %v", err)
	}
	if err := consumer.Start(); err != nil {
		logrus.Fatalf("failed to start consumer: %v", err)
	}

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan
	logrus.Infof("consumer is shutting down...")
	consumer.Stop()
}

func init() {
	consumeCommand.Flags().StringVar(&consumeChannel, "channel", "chemviz-reports", "NSQ channel name")
}
