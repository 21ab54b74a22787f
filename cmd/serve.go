package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chemviz/internal/server"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start chemviz server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func runServe() {
	conf := mustInitConfig()

	db := mustInitDB(conf)
	defer closeDB(db)

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	datasets, release := newDatasetService(ctx, conf)
	defer release()

	evicted, err := datasets.Trim(ctx)
	if err != nil {
		logrus.Fatalf("failed to apply dataset history, %s", err.Error())
	}
	if len(evicted) > 0 {
		logrus.Infof("evicted %d datasets beyond history size %d", len(evicted), conf.MaxDatasetHistory)
	}

	srv, err := server.NewServer(ctx, conf, datasets)
	if err != nil {
		logrus.Fatalf("newServer error, %s", err.Error())
	}
	go srv.Start()

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan
	logrus.Infof("server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server forced to shutdown: %v", err)
	}
}
