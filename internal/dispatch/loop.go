// Package dispatch runs the decision loop for one inbound message: ask the
// decision-maker, execute the operation it picked, feed the result back, and
// repeat until a text reply comes out or the round budget is spent.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/dpereira/agendai/internal/decider"
	"github.com/dpereira/agendai/internal/domain"
	"github.com/dpereira/agendai/internal/logging"
	"github.com/dpereira/agendai/internal/ops"
)

// maxRounds caps operation executions per inbound message. A decision-maker
// still asking for operations after the last round gets cut off.
const maxRounds = 5

// FallbackReply is sent when the round budget runs out without a text reply.
const FallbackReply = "Desculpe, estou processando muitas ações ao mesmo tempo. Pode repetir?"

// Loop drives one conversation turn to a final reply.
type Loop struct {
	dec decider.Decider
	reg *ops.Registry
	log *logging.Logger
}

// NewLoop creates a dispatch loop over a decider and an operation registry.
func NewLoop(dec decider.Decider, reg *ops.Registry, log *logging.Logger) *Loop {
	return &Loop{dec: dec, reg: reg, log: log.Sub("dispatch")}
}

// Run produces the final reply for the transcript. clientPhone is injected
// into any operation call that arrives without a phone argument, so the
// decision-maker can never act on a number it made up for the wrong user.
func (l *Loop) Run(ctx context.Context, system string, transcript []domain.Message, clientPhone string) (string, error) {
	working := make([]domain.Message, len(transcript))
	copy(working, transcript)

	req := decider.Request{
		System:     system,
		Transcript: working,
		Operations: l.reg.Definitions(),
	}

	decision, err := l.dec.Decide(ctx, req)
	if err != nil {
		return "", err
	}

	for round := 0; round < maxRounds; round++ {
		if !decision.IsOperation() {
			return decision.Text, nil
		}

		if clientPhone != "" {
			if p, _ := decision.Args["phone"].(string); p == "" {
				if decision.Args == nil {
					decision.Args = map[string]any{}
				}
				decision.Args["phone"] = clientPhone
				l.log.Debug().Str("operation", decision.Operation).Msg("injected client phone into arguments")
			}
		}

		result := l.execute(ctx, decision)

		working = append(working,
			domain.Message{Role: domain.RoleAssistant, Content: describeCall(decision)},
			domain.Message{Role: domain.RoleTool, Content: result},
		)
		req.Transcript = working

		decision, err = l.dec.Decide(ctx, req)
		if err != nil {
			return "", err
		}
	}

	l.log.Warn().Msg("round budget exhausted without a text reply")
	return FallbackReply, nil
}

func (l *Loop) execute(ctx context.Context, d *decider.Decision) string {
	op := l.reg.Get(d.Operation)
	if op == nil {
		l.log.Warn().Str("operation", d.Operation).Msg("unknown operation requested")
		return "Erro ao executar ferramenta: operação desconhecida."
	}

	l.log.Info().Str("operation", d.Operation).Interface("args", d.Args).Msg("executing operation")
	result, err := op.Execute(ctx, d.Args)
	if err != nil {
		l.log.Error().Err(err).Str("operation", d.Operation).Msg("operation failed")
	}
	return result
}

// describeCall renders an operation decision as a transcript entry the
// decision-maker can read back on the next round.
func describeCall(d *decider.Decision) string {
	args, _ := json.Marshal(d.Args)
	return "[operação " + d.Operation + " " + string(args) + "]"
}
