package inference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/z-clinic/backend/internal/analysis/ranking"
	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
)

// ErrExhausted reports that every configured adapter failed. With the local
// tier registered last this is unreachable for text modes.
var ErrExhausted = errors.New("all inference providers failed")

// ErrNoVisionAdapter reports that no configured adapter accepts image input.
var ErrNoVisionAdapter = errors.New("no vision-capable provider configured")

// ErrStreamingUnavailable reports that no adapter could open a reply stream.
// Callers fall back to the single-shot path.
var ErrStreamingUnavailable = errors.New("streaming unavailable")

// Service walks the adapter chain in priority order. Adapters are tried
// strictly one after another; two are never queried concurrently for the same
// request.
type Service struct {
	adapters []provider.Adapter
	timeout  time.Duration
	retries  int
}

// NewService builds the orchestrator. Adapter order is the fallback priority
// order; the last entry should be the local tier.
func NewService(adapters []provider.Adapter, cfg config.ProviderConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	return &Service{adapters: adapters, timeout: timeout, retries: retries}
}

// AdapterNames lists the chain in priority order.
func (s *Service) AdapterNames() []string {
	names := make([]string, 0, len(s.adapters))
	for _, adapter := range s.adapters {
		names = append(names, adapter.Name())
	}
	return names
}

// VisionCapable reports whether any adapter accepts image input.
func (s *Service) VisionCapable() bool {
	for _, adapter := range s.adapters {
		if adapter.Supports(provider.ModeVision) {
			return true
		}
	}
	return false
}

// Analyze runs the symptom fallback chain and ranks the winning result. The
// pipeline's corrected input is stamped onto the result, keeping any extra
// interpretations the winning provider reported.
func (s *Service) Analyze(ctx context.Context, corrected diagnosis.CorrectedInput) (*diagnosis.AnalysisResult, error) {
	req := provider.Request{
		Mode:     provider.ModeSymptom,
		Text:     corrected.CorrectedText,
		Language: corrected.DetectedLanguage,
	}

	result, _, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	analysis := result.Analysis
	analysis.CorrectedSymptoms = mergeCorrections(corrected, analysis.CorrectedSymptoms)

	if err := ranking.Finalize(analysis); err != nil {
		// Adapters reject empty diagnosis lists, so only a misbehaving local
		// tier could land here.
		return nil, err
	}
	return analysis, nil
}

// Converse runs the chat fallback chain and returns the reply together with
// the adapter that produced it.
func (s *Service) Converse(ctx context.Context, req provider.Request) (string, string, error) {
	req.Mode = provider.ModeChat

	result, name, err := s.run(ctx, req)
	if err != nil {
		return "", "", err
	}
	return result.Reply, name, nil
}

// ConverseStream opens a streaming chat reply on the first adapter that can.
// Streams are single attempts; a failed stream moves to the next adapter
// rather than retrying.
func (s *Service) ConverseStream(ctx context.Context, req provider.Request) (*schema.StreamReader[*schema.Message], string, error) {
	req.Mode = provider.ModeChat

	for _, adapter := range s.adapters {
		if !adapter.Supports(provider.ModeChat) {
			continue
		}
		streamer, ok := adapter.(provider.Streamer)
		if !ok {
			continue
		}

		stream, err := streamer.InferStream(ctx, req)
		if err != nil {
			log.Printf("[inference] adapter=%s stream failed kind=%s: %v", adapter.Name(), provider.KindOf(err), err)
			continue
		}

		log.Printf("[inference] adapter=%s streaming chat reply", adapter.Name())
		return stream, adapter.Name(), nil
	}

	return nil, "", ErrStreamingUnavailable
}

// Describe sends an image to the first vision-capable adapter.
func (s *Service) Describe(ctx context.Context, req provider.Request) (*vision.Result, error) {
	req.Mode = provider.ModeVision

	tried := false
	for _, adapter := range s.adapters {
		if !adapter.Supports(provider.ModeVision) {
			continue
		}
		tried = true

		result, err := s.tryAdapter(ctx, adapter, req)
		if err != nil {
			log.Printf("[inference] adapter=%s mode=vision failed kind=%s: %v", adapter.Name(), provider.KindOf(err), err)
			continue
		}
		return result.Vision, nil
	}

	if !tried {
		return nil, ErrNoVisionAdapter
	}
	return nil, ErrExhausted
}

// attempt records one adapter's failure on the way to an answer.
type attempt struct {
	adapter string
	kind    provider.Kind
	elapsed time.Duration
}

func formatTrail(trail []attempt) string {
	parts := make([]string, 0, len(trail))
	for _, a := range trail {
		parts = append(parts, fmt.Sprintf("%s(%s, %s)", a.adapter, a.kind, a.elapsed.Round(time.Millisecond)))
	}
	return strings.Join(parts, ", ")
}

// run walks the chain for one text-mode request.
func (s *Service) run(ctx context.Context, req provider.Request) (*provider.Result, string, error) {
	var trail []attempt

	for _, adapter := range s.adapters {
		if !adapter.Supports(req.Mode) {
			continue
		}

		started := time.Now()
		result, err := s.tryAdapter(ctx, adapter, req)
		if err != nil {
			trail = append(trail, attempt{adapter: adapter.Name(), kind: provider.KindOf(err), elapsed: time.Since(started)})
			log.Printf("[inference] adapter=%s mode=%s failed kind=%s: %v", adapter.Name(), req.Mode, provider.KindOf(err), err)
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			continue
		}

		if len(trail) > 0 {
			log.Printf("[inference] mode=%s answered by %s after %s", req.Mode, adapter.Name(), formatTrail(trail))
		} else {
			log.Printf("[inference] adapter=%s answered mode=%s", adapter.Name(), req.Mode)
		}
		normalizeResult(adapter.Name(), req.Mode, result)
		return result, adapter.Name(), nil
	}

	if len(trail) > 0 {
		log.Printf("[inference] mode=%s exhausted: %s", req.Mode, formatTrail(trail))
	}
	return nil, "", ErrExhausted
}

// tryAdapter runs one adapter with a per-attempt timeout, retrying transient
// failures. Auth and malformed-response failures skip straight to the next
// tier since a retry cannot fix them.
func (s *Service) tryAdapter(ctx context.Context, adapter provider.Adapter, req provider.Request) (*provider.Result, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		result, err := adapter.Infer(attemptCtx, req)
		cancel()

		if err == nil {
			if result == nil {
				return nil, provider.NewError(adapter.Name(), provider.KindMalformed, errors.New("adapter returned nil result"))
			}
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}

		kind := provider.KindOf(err)
		if kind != provider.KindTimeout && kind != provider.KindUnreachable {
			return nil, lastErr
		}
		if attempt == s.retries {
			break
		}

		retryDelay := time.Duration(attempt+1) * time.Second
		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(retryDelay):
		}
	}

	return nil, lastErr
}

// normalizeResult guards the invariants an adapter must uphold, so a sloppy
// tier cannot leak an unlabeled or missing payload.
func normalizeResult(name string, mode provider.Mode, result *provider.Result) {
	if mode != provider.ModeSymptom {
		return
	}
	if result.Analysis == nil {
		result.Analysis = &diagnosis.AnalysisResult{}
	}
	if result.Analysis.AnalysisMethod == "" {
		result.Analysis.AnalysisMethod = name
	}
}

// mergeCorrections overlays the provider's own corrections onto the pipeline
// pass. The pipeline owns original text and detected language; the provider
// may refine the corrected text and add interpretations.
func mergeCorrections(pipeline diagnosis.CorrectedInput, fromProvider *diagnosis.CorrectedInput) *diagnosis.CorrectedInput {
	merged := pipeline

	if fromProvider != nil {
		if fromProvider.CorrectedText != "" {
			merged.CorrectedText = fromProvider.CorrectedText
		}
		if len(fromProvider.Interpretations) > 0 {
			merged.Interpretations = append(append([]string(nil), merged.Interpretations...), fromProvider.Interpretations...)
		}
	}

	return &merged
}
