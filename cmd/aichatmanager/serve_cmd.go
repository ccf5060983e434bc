package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jcooky/go-din"
	"github.com/spf13/cobra"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/project"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	flags := &struct {
		port int
	}{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			conf, err := din.GetT[*config.Config](c)
			if err != nil {
				return err
			}
			logger := din.MustGetT[*slog.Logger](c)
			service, err := din.GetT[*project.Service](c)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				conf.Server.Port = flags.port
			}

			server := &http.Server{
				Addr:    fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
				Handler: newServerHandler(service, conf.Server, conf.Conversation.MaxUploadBytes, logger),
				BaseContext: func(net.Listener) context.Context {
					return c
				},
			}

			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("failed to shutdown server", mylog.Err(err))
				}
			}()

			logger.Info("server started", "host", conf.Server.Host, "port", conf.Server.Port)
			defer logger.Info("server stopped")

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&flags.port, "port", "p", 5000, "Port to listen on")

	return cmd
}
