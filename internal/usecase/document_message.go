package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

// DocumentMessage is the wire form of a DocumentEnvelope, shared by the
// internal HTTP route and the documents stream. Enum fields travel as names.
type DocumentMessage struct {
	ID            string          `json:"id" validate:"required"`
	DocumentType  string          `json:"documentType" validate:"required"`
	Provider      string          `json:"provider" validate:"required"`
	Sport         string          `json:"sport" validate:"required"`
	SeasonYear    int             `json:"seasonYear" validate:"omitempty,gte=1869,lte=2100"`
	SourceURL     string          `json:"sourceUrl" validate:"required,url"`
	ParentID      string          `json:"parentId" validate:"omitempty,uuid"`
	CorrelationID string          `json:"correlationId" validate:"omitempty,uuid"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// DecodeDocumentMessage parses a stream message body into an envelope.
func DecodeDocumentMessage(data []byte) (DocumentEnvelope, error) {
	var msg DocumentMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return DocumentEnvelope{}, fmt.Errorf("%w: decode document message: %v", ErrInvalidInput, err)
	}
	return msg.Envelope()
}

// Envelope resolves the named enums. Field-level checks happen in
// DocumentService.Process.
func (m DocumentMessage) Envelope() (DocumentEnvelope, error) {
	docType, err := documenttype.Parse(m.DocumentType)
	if err != nil {
		return DocumentEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	provider, err := externalid.ParseProvider(m.Provider)
	if err != nil {
		return DocumentEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sp, err := sport.Parse(m.Sport)
	if err != nil {
		return DocumentEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var payload []byte
	if trimmed := strings.TrimSpace(string(m.Payload)); trimmed != "" && trimmed != "null" {
		payload = []byte(m.Payload)
	}
	return DocumentEnvelope{
		ID:            strings.TrimSpace(m.ID),
		DocumentType:  docType,
		Provider:      provider,
		Sport:         sp,
		SeasonYear:    m.SeasonYear,
		SourceURL:     strings.TrimSpace(m.SourceURL),
		ParentID:      strings.TrimSpace(m.ParentID),
		CorrelationID: strings.TrimSpace(m.CorrelationID),
		Payload:       payload,
	}, nil
}
