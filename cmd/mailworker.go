/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mernauth/authserver/config"
	"github.com/mernauth/authserver/internal/mailer"
	"github.com/mernauth/authserver/internal/mq"
	"github.com/spf13/cobra"
)

// mailworkerCmd represents the mailworker command. It consumes queued mail
// jobs and delivers them over SMTP; it is only useful when the server runs
// with MAIL_TRANSPORT=rabbitmq or pubsub.
var mailworkerCmd = &cobra.Command{
	Use:   "mailworker",
	Short: "Consume queued mail jobs and deliver them over SMTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		var backend mq.Backend
		var err error
		switch cfg.Mail.Transport {
		case "rabbitmq":
			backend, err = mq.NewRabbitMQClient(cfg.RabbitMQ)
		case "pubsub":
			backend, err = mq.NewPubSubClient(cmd.Context(), cfg.PubSub)
		default:
			return fmt.Errorf("mail transport %q has no queue to consume", cfg.Mail.Transport)
		}
		if err != nil {
			return err
		}

		queue := mq.New(backend)
		defer func() {
			_ = queue.Close()
		}()

		sender := mailer.NewSMTPSender(cfg.Mail)
		err = mailer.Consume(cmd.Context(), queue, cfg.Mail.Queue, sender)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(mailworkerCmd)
}
