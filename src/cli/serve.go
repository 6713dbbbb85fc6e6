package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"fintrack-server/src/api"
	"fintrack-server/src/auth"
	"fintrack-server/src/backend"
	"fintrack-server/src/config"
	"fintrack-server/src/db"
	"fintrack-server/src/events"
	"fintrack-server/src/finance"
	"fintrack-server/src/handlers"
	"fintrack-server/src/mail"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var runMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if runMigrations {
				if err := backend.Migrate(cfg); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			deps, cleanup, err := buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Amounts go out as JSON numbers.
			decimal.MarshalJSONWithoutQuotes = true

			server := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           api.NewRouter(deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Println("API server running on port", cfg.Port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Println("INFO: Shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply migrations before serving")
	return cmd
}

// buildDeps opens every collaborator the API needs. cleanup closes them in
// reverse order.
func buildDeps(ctx context.Context, cfg *config.Config) (*handlers.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { store.Close() })

	profiles, err := db.NewProfileCache(cfg.ProfileCacheTTL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, profiles.Close)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("INFO: Publishing ledger events to %s", cfg.KafkaTopic)
	}
	closers = append(closers, func() { publisher.Close() })

	outbox, err := newOutbox(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { outbox.Close() })

	deps := &handlers.Deps{
		Store:    store,
		Finance:  finance.NewService(store, store, publisher),
		Profiles: profiles,
		Tokens:   auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL, cfg.ResetTokenTTL),
		Outbox:   outbox,
		Config:   cfg,
	}
	return deps, cleanup, nil
}

// newOutbox queues mail on RabbitMQ when configured and otherwise delivers
// inline.
func newOutbox(cfg *config.Config) (mail.Outbox, error) {
	if cfg.AMQPURL != "" {
		q, err := mail.DialQueue(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMailQueue)
		if err != nil {
			return nil, err
		}
		log.Printf("INFO: Queueing mail on %s", cfg.AMQPMailQueue)
		return q, nil
	}
	return mail.Direct{Sender: newSender(cfg)}, nil
}

func newSender(cfg *config.Config) mail.Sender {
	if cfg.SMTPHost == "" {
		log.Println("INFO: SMTP_HOST not set, mail is written to the log")
		return mail.LogSender{}
	}
	return mail.SMTPSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}
}
