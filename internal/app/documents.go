package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/inbox"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/jetstream"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

// DocumentProcessor is the document service as seen by the stream handler.
type DocumentProcessor interface {
	Process(ctx context.Context, env usecase.DocumentEnvelope) (usecase.DocumentResult, error)
}

// NewDocumentHandler turns document deliveries into document service calls.
// Undecodable messages terminate, unsupported document types are consumed
// without effect, and everything else is returned for redelivery.
func NewDocumentHandler(documents DocumentProcessor, logger *logging.Logger) inbox.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(ctx context.Context, msg inbox.Message) error {
		env, err := usecase.DecodeDocumentMessage(msg.Data)
		if err != nil {
			logger.WarnContext(ctx, "drop undecodable document", "message_id", msg.ID, "subject", msg.Subject, "error", err)
			return fmt.Errorf("%w: %v", jetstream.ErrTerminate, err)
		}
		if env.CorrelationID == "" {
			env.CorrelationID = msg.Headers[outbox.HeaderCorrelationID]
		}
		ctx = logging.WithCorrelationID(ctx, env.CorrelationID)

		result, err := documents.Process(ctx, env)
		switch {
		case errors.Is(err, usecase.ErrUnsupportedDocument):
			logger.InfoContext(ctx, "skip unsupported document", "message_id", msg.ID, "document_type", env.DocumentType.String())
			return nil
		case errors.Is(err, usecase.ErrInvalidInput):
			logger.WarnContext(ctx, "drop invalid document", "message_id", msg.ID, "error", err)
			return fmt.Errorf("%w: %v", jetstream.ErrTerminate, err)
		case err != nil:
			return err
		}

		logger.DebugContext(ctx, "document processed",
			"message_id", msg.ID,
			"document_type", result.DocumentType.String(),
			"entity_id", result.EntityID,
			"created", result.Created,
		)
		return nil
	}
}
