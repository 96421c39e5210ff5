package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
)

// Mode selects which inference contract an adapter call follows.
type Mode string

const (
	// ModeSymptom asks for a structured diagnosis list from symptom text.
	ModeSymptom Mode = "symptom"
	// ModeChat asks for a conversational doctor reply.
	ModeChat Mode = "chat"
	// ModeVision asks for structured findings from a medical image.
	ModeVision Mode = "vision"
)

// Request carries one inference call through an adapter.
type Request struct {
	Mode     Mode
	Text     string
	Language string
	Locale   locale.Locale
	History  []chat.Turn
	Image    *vision.ImageRequest
}

// Result is one adapter's normalized outcome. Exactly one field is populated,
// matching the requested mode.
type Result struct {
	Analysis *diagnosis.AnalysisResult
	Reply    string
	Vision   *vision.Result
}

// Adapter normalizes one inference backend into the canonical schema.
// Implementations fail fast with an *Error and never retry internally;
// retries belong to the orchestrator.
type Adapter interface {
	Name() string
	Supports(mode Mode) bool
	Infer(ctx context.Context, req Request) (*Result, error)
}

// Streamer marks adapters that can stream a chat reply chunk by chunk.
// Callers fall back to Infer when the assertion fails.
type Streamer interface {
	InferStream(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error)
}

// Kind classifies an adapter failure. The orchestrator logs the kind and
// falls through to the next tier; these never reach the caller raw.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindMalformed   Kind = "malformed_response"
	KindUnreachable Kind = "unreachable"
)

// Error describes why one adapter failed.
type Error struct {
	Adapter string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Adapter, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Adapter, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an explicit failure kind.
func NewError(adapter string, kind Kind, err error) *Error {
	return &Error{Adapter: adapter, Kind: kind, Err: err}
}

// Classify wraps err into an *Error, inferring the kind from transport
// signals. Unknown failures count as unreachable so the fallback proceeds.
func Classify(adapter string, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(adapter, KindTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return NewError(adapter, KindTimeout, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "authentication"):
		return NewError(adapter, KindAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") || strings.Contains(msg, "quota"):
		return NewError(adapter, KindRateLimited, err)
	default:
		return NewError(adapter, KindUnreachable, err)
	}
}

// KindOf extracts the failure kind from err, defaulting to unreachable for
// errors that did not come from an adapter.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnreachable
}
