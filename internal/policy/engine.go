// Package policy decides whether a user may control a device.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/Rooney-Eli/gorilla-groove/internal/domain"
)

// Engine evaluates the device-control policy. The decision is pure and is
// re-evaluated on every request; grants expire asynchronously so the result
// is never cached.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the device-control query from the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.device_control.allow"),
		rego.Module("device_control.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// CanControl reports whether the user may command the device at the given
// instant. The owner always may; anyone else needs an unexpired party grant
// naming them.
func (e *Engine) CanControl(ctx context.Context, userID int64, device *domain.Device, now time.Time) (bool, error) {
	var partyUntil interface{}
	if device.PartyEnabledUntil != nil {
		partyUntil = device.PartyEnabledUntil.UnixMilli()
	}
	partyUserIDs := make([]interface{}, len(device.PartyUserIDs))
	for i, id := range device.PartyUserIDs {
		partyUserIDs[i] = id
	}

	input := map[string]interface{}{
		"user_id":             userID,
		"owner_id":            device.UserID,
		"party_enabled_until": partyUntil,
		"party_user_ids":      partyUserIDs,
		"now":                 now.UnixMilli(),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	return allowed, nil
}

// DeviceControlPolicy is the default device-control policy content.
const DeviceControlPolicy = `
package device_control

default allow := false

# The owner always controls their own device.
allow {
	input.user_id == input.owner_id
}

# Anyone else needs an unexpired party grant that names them.
allow {
	input.party_enabled_until != null
	input.party_enabled_until > input.now
	input.party_user_ids[_] == input.user_id
}
`
