package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderLotteryID     = "lottery_id"
	HeaderRetryCount    = "retry_count"
	HeaderMessageType   = "message_type"
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
	HeaderErrorType     = "error_type"
	HeaderFailedAt      = "failed_at"
)

// HeaderPayloadEncoding marks a body that is not the original JSON, e.g.
// base64 of an undecodable message value.
const (
	HeaderPayloadEncoding = "payload_encoding"
	PayloadEncodingBase64 = "base64"
)

type MessageType string

const (
	MessageLotterySchedule   MessageType = "lottery_schedule"
	MessageDrawConfiguration MessageType = "draw_configuration"
	MessageTicketBatch       MessageType = "ticket_batch"
	MessageDrawResult        MessageType = "draw_result"
)

// Envelope is the wire format of every message exchanged between services.
type Envelope struct {
	Body    json.RawMessage   `json:"body"`
	Headers map[string]string `json:"headers"`
}

func NewEnvelope(msgType MessageType, lotteryID int64, body any) (*Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", msgType, err)
	}
	return &Envelope{
		Body: raw,
		Headers: map[string]string{
			HeaderLotteryID:   strconv.FormatInt(lotteryID, 10),
			HeaderMessageType: string(msgType),
			HeaderRetryCount:  "0",
		},
	}, nil
}

func (e *Envelope) Header(key string) string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers[key]
}

func (e *Envelope) SetHeader(key, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
}

func (e *Envelope) Type() MessageType {
	return MessageType(e.Header(HeaderMessageType))
}

func (e *Envelope) RetryCount() int {
	n, _ := strconv.Atoi(e.Header(HeaderRetryCount))
	return n
}

// Decode unmarshals the body into v. A body that does not decode is poison.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Body, v); err != nil {
		return NewPoisonError(fmt.Errorf("decode %s: %w", e.Type(), err))
	}
	return nil
}

// Clone copies the envelope so header enrichment never mutates the original.
func (e *Envelope) Clone() *Envelope {
	c := &Envelope{Body: append(json.RawMessage(nil), e.Body...), Headers: make(map[string]string, len(e.Headers))}
	for k, v := range e.Headers {
		c.Headers[k] = v
	}
	return c
}

type Message struct {
	Key      []byte
	Envelope *Envelope
}

type PublisherPort interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
}

func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}

// TicketTopic names the per-type ticket import topic under prefix.
func TicketTopic(prefix string, t LotteryType) string {
	return prefix + "." + strings.ToLower(string(t))
}

type LotterySchedule struct {
	LotteryID     int64       `json:"lottery_id"`
	Type          LotteryType `json:"type"`
	Country       string      `json:"country"`
	SaleStartDate time.Time   `json:"sale_start_date"`
	SaleEndDate   *time.Time  `json:"sale_end_date,omitempty"`
	DrawDate      *time.Time  `json:"draw_date,omitempty"`
}

type DrawConfiguration struct {
	LotteryID    int64       `json:"lottery_id"`
	Type         LotteryType `json:"type"`
	Country      string      `json:"country"`
	DrawDate     *time.Time  `json:"draw_date,omitempty"`
	WinnersCount int         `json:"winners_count"`
	SoldTickets  int64       `json:"sold_tickets"`
}

type ExportedTicket struct {
	PurchaseID   int64  `json:"purchase_id"`
	TicketNumber string `json:"ticket_number"`
}

type TicketBatch struct {
	LotteryID int64            `json:"lottery_id"`
	Type      LotteryType      `json:"type"`
	Tickets   []ExportedTicket `json:"tickets"`
}

type DrawnTicket struct {
	Position     int    `json:"position"`
	TicketNumber string `json:"ticket_number"`
}

type DrawResult struct {
	LotteryID int64         `json:"lottery_id"`
	Type      LotteryType   `json:"type"`
	DrawnAt   time.Time     `json:"drawn_at"`
	Winners   []DrawnTicket `json:"winners"`
}
