package cli

import (
	"errors"
	"fmt"
	"log"

	"fintrack-server/src/mail"

	"github.com/spf13/cobra"
)

func mailerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mailer",
		Short: "Deliver queued mail over SMTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.AMQPURL == "" {
				return fmt.Errorf("AMQP_URL is required for the mailer")
			}
			q, err := mail.DialQueue(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPMailQueue)
			if err != nil {
				return err
			}
			defer q.Close()

			err = q.Consume(cmd.Context(), newSender(cfg))
			if errors.Is(err, cmd.Context().Err()) {
				log.Println("INFO: Mailer stopped")
				return nil
			}
			return err
		},
	}
}
