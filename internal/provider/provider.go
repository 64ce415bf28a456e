// internal/provider/provider.go
package provider

import (
    "context"
    "fmt"
    "log"

    "github.com/fleetrecruit/outreach-backend/internal/model"
)

// SenderContext carries the per-batch resolved sender data.
type SenderContext struct {
    CompanyID  string
    SenderName string
    Subject    string
}

// Sender is the single capability the engine needs from a message provider.
type Sender interface {
    Send(ctx context.Context, recipient, body string, sctx SenderContext) error
}

// Registry resolves the concrete adapter once per batch from the configured
// channel, never per message.
type Registry struct {
    senders map[string]Sender
}

func NewRegistry() *Registry {
    return &Registry{senders: make(map[string]Sender)}
}

func (r *Registry) Register(channel string, s Sender) {
    r.senders[channel] = s
}

func (r *Registry) ForChannel(channel string) (Sender, error) {
    s, ok := r.senders[channel]
    if !ok {
        return nil, fmt.Errorf("no provider registered for channel %q", channel)
    }
    return s, nil
}

// LogSender is the local-development adapter: it prints instead of dialing a
// real provider.
type LogSender struct {
    Channel string
}

func (s *LogSender) Send(ctx context.Context, recipient, body string, sctx SenderContext) error {
    log.Printf("📤 [%s] to=%s from=%s body=%q", s.Channel, recipient, sctx.SenderName, body)
    return nil
}

// NewDevRegistry wires log adapters for both channels.
func NewDevRegistry() *Registry {
    r := NewRegistry()
    r.Register(model.ChannelSMS, &LogSender{Channel: model.ChannelSMS})
    r.Register(model.ChannelEmail, &LogSender{Channel: model.ChannelEmail})
    return r
}
