package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/rcmckee/bigcases2/core"
)

const (
	SurfaceFiling = "filing"
	SurfaceFetch  = "fetch"
)

const idempotencyKeyHeader = "Idempotency-Key"

// PipelineService is the slice of the pipeline the inbound surface needs.
type PipelineService interface {
	ProcessFilingWebhook(ctx context.Context, idempotencyKey string, envelope core.FilingWebhookEnvelope) (core.IntakeResult, error)
	ProcessFetchWebhook(ctx context.Context, idempotencyKey string, envelope core.FetchWebhookEnvelope) (bool, error)
}

// Dispatcher routes normalized inbound requests to the pipeline by surface.
type Dispatcher struct {
	service PipelineService
}

func NewDispatcher(service PipelineService) (*Dispatcher, error) {
	if service == nil {
		return nil, inboundInternal("inbound: pipeline service is required", nil)
	}
	return &Dispatcher{service: service}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if d == nil || d.service == nil {
		return core.InboundResult{}, inboundInternal("inbound: dispatcher is not configured", nil)
	}
	surface := normalizeSurface(req.Surface)
	key := headerValue(req.Headers, idempotencyKeyHeader)

	switch surface {
	case SurfaceFiling:
		return d.dispatchFiling(ctx, key, req.Body)
	case SurfaceFetch:
		return d.dispatchFetch(ctx, key, req.Body)
	default:
		return core.InboundResult{}, inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", surface),
			map[string]any{"surface": surface},
		)
	}
}

func (d *Dispatcher) dispatchFiling(ctx context.Context, key string, body []byte) (core.InboundResult, error) {
	var envelope core.FilingWebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.InboundResult{}, inboundWrapError(
			err,
			goerrors.CategoryBadInput,
			"inbound: decode filing webhook payload",
			http.StatusBadRequest,
			core.PipelineErrorBadInput,
			map[string]any{"surface": SurfaceFiling},
		)
	}

	result, err := d.service.ProcessFilingWebhook(ctx, key, envelope)
	if err != nil {
		return core.InboundResult{}, err
	}
	if result.Replayed {
		// The sender already got its answer once.
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata:   map[string]any{"surface": SurfaceFiling, "replayed": true},
		}, nil
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusCreated,
		Body:       body,
		Metadata: map[string]any{
			"surface": SurfaceFiling,
			"created": len(result.Created),
		},
	}, nil
}

func (d *Dispatcher) dispatchFetch(ctx context.Context, key string, body []byte) (core.InboundResult, error) {
	var envelope core.FetchWebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.InboundResult{}, inboundWrapError(
			err,
			goerrors.CategoryBadInput,
			"inbound: decode fetch webhook payload",
			http.StatusBadRequest,
			core.PipelineErrorBadInput,
			map[string]any{"surface": SurfaceFetch},
		)
	}

	replayed, err := d.service.ProcessFetchWebhook(ctx, key, envelope)
	if err != nil {
		return core.InboundResult{}, err
	}
	if replayed {
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata:   map[string]any{"surface": SurfaceFetch, "replayed": true},
		}, nil
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusCreated,
		Body:       body,
		Metadata:   map[string]any{"surface": SurfaceFetch},
	}, nil
}

// Handler adapts one surface onto net/http.
func (d *Dispatcher) Handler(surface string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, inboundBadInput("inbound: read request body", nil))
			return
		}
		result, err := d.Dispatch(r.Context(), core.InboundRequest{
			Surface: surface,
			Headers: singleValueHeaders(r.Header),
			Body:    body,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if len(result.Body) > 0 {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(result.StatusCode)
		if len(result.Body) > 0 {
			_, _ = w.Write(result.Body)
		}
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFromError(err)
	payload := map[string]any{"error": err.Error()}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		payload["error"] = rich.Message
		if rich.TextCode != "" {
			payload["code"] = rich.TextCode
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func singleValueHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name := range header {
		out[name] = header.Get(name)
	}
	return out
}

func normalizeSurface(surface string) string {
	return strings.TrimSpace(strings.ToLower(surface))
}

func headerValue(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
