package dispatch

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"whatsapp-crm/internal/whatsapp"
)

// Sender is the provider surface the executor needs.
type Sender interface {
	SendMessage(ctx context.Context, msg whatsapp.GenericMessage) (*whatsapp.SendResult, error)
}

// ExecResult is the outcome of one payload submission.
type ExecResult struct {
	Index     int
	MessageID string
	Raw       json.RawMessage
	Err       error
}

// Executor submits payloads to the provider. A single payload failure is
// fatal; within a multi-image fan-out a per-item failure is recorded and
// the batch continues, so one failing image never blocks the others.
type Executor struct {
	provider Sender
}

func NewExecutor(provider Sender) *Executor {
	return &Executor{provider: provider}
}

// Execute sends payloads strictly sequentially: item i+1 does not go out
// until item i's result is recorded, so persisted-row order matches the
// caller's media order.
func (e *Executor) Execute(ctx context.Context, payloads []whatsapp.GenericMessage) ([]ExecResult, error) {
	if len(payloads) == 1 {
		result, err := e.provider.SendMessage(ctx, payloads[0])
		if err != nil {
			provErr := &ProviderError{Err: err}
			if result != nil {
				provErr.Body = string(result.Raw)
			}
			return nil, provErr
		}
		return []ExecResult{{Index: 0, MessageID: result.MessageID, Raw: result.Raw}}, nil
	}

	results := make([]ExecResult, 0, len(payloads))
	for i, payload := range payloads {
		result, err := e.provider.SendMessage(ctx, payload)
		item := ExecResult{Index: i}
		if result != nil {
			item.MessageID = result.MessageID
			item.Raw = result.Raw
		}
		if err != nil {
			item.Err = err
			zap.L().Warn("dispatch: batch item rejected by provider, continuing",
				zap.Int("index", i), zap.Error(err))
		}
		results = append(results, item)
	}
	return results, nil
}
