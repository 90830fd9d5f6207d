/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vidforge/vidforge/api"
)

func serveCmd(b *vidforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the api server and the orphan sweeper",
		Run: func(cmd *cobra.Command, args []string) {
			router := api.NewAPI(b.engine).Router()
			server := &http.Server{
				Addr:    ":" + b.cnf.Server.Port,
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := b.engine.StartSweeper(ctx); err != nil && err != context.Canceled {
					logrus.Errorf("sweeper stopped: %v", err)
				}
			}()

			go func() {
				log.Printf("Starting server on %s\n", b.cnf.Server.Port)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logrus.Errorf("server shutdown: %v", err)
			}
		},
	}
	return cmd
}

func serverCommands(b *vidforgeInstance) *cobra.Command {
	return serveCmd(b)
}

func sweepCommands(b *vidforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one orphan sweep and exit",
		Run: func(cmd *cobra.Command, args []string) {
			if err := b.engine.SweepOnce(context.Background()); err != nil {
				log.Fatalf("sweep failed: %v", err)
			}
			logrus.Info("sweep completed")
		},
	}
	return cmd
}
