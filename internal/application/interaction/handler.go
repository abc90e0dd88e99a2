package interaction

import (
	"context"

	kafkainfra "github.com/protwis/signprot/internal/infrastructure/messaging/kafka"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

// RequestHandler runs the builder for every interactions.requested event. An
// event without PDB codes rebuilds every complex only when allowAll is set;
// otherwise it is rejected.
func RequestHandler(b *Builder, allowAll bool, logger logging.Logger) kafkainfra.MessageHandler {
	log := logger.Named("requests")
	return func(ctx context.Context, msg *kafkainfra.Message) error {
		env, err := kafkainfra.MessageToEventEnvelope(msg)
		if err != nil {
			return err
		}
		if env.EventType != kafkainfra.EventInteractionsRequested {
			return errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(env.EventType)
		}
		var req kafkainfra.InteractionsRequested
		if err := env.DecodePayload(&req); err != nil {
			return err
		}
		if len(req.PDBCodes) == 0 && !allowAll {
			return errors.New(errors.ErrCodeValidation, "request names no pdb codes").WithDetail(env.EventID)
		}

		summary, err := b.Run(ctx, req.PDBCodes)
		if err != nil {
			return err
		}
		log.Info("Interaction request handled",
			logging.String("event_id", env.EventID),
			logging.Int("processed", summary.Processed),
			logging.Int("failed", summary.Failed),
			logging.Int("skipped", summary.Skipped))
		return nil
	}
}
