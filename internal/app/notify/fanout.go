// Package notify implements the dual-channel notification fan-out:
// in-process socket delivery plus a republish to the external broker.
// Both channels are best effort and independent; a failure on either is
// logged and counted, never surfaced to the caller, and never unwinds
// the state change that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type Fanout struct {
	registry      interfaces.SocketRegistry
	broker        interfaces.BrokerPublisher
	brokerEnabled bool
	logger        logger.Logger

	socketFailures int64
	brokerFailures int64
}

func NewFanout(registry interfaces.SocketRegistry, broker interfaces.BrokerPublisher, brokerEnabled bool, lgr logger.Logger) *Fanout {
	return &Fanout{
		registry:      registry,
		broker:        broker,
		brokerEnabled: brokerEnabled,
		logger:        lgr,
	}
}

// Publish delivers payload under topic to both channels.
func (f *Fanout) Publish(ctx context.Context, topic string, payload any, targeting interfaces.Targeting) {
	body, err := json.Marshal(payload)
	if err != nil {
		atomic.AddInt64(&f.socketFailures, 1)
		f.logger.Error("event_marshal_failed", "Failed to encode event payload", "", map[string]any{"topic": topic}, err)
		return
	}

	delivered := f.registry.Broadcast(topic, body, targeting)
	f.logger.Debug("socket_delivered", "Event delivered to local sessions", "", map[string]any{
		"topic":    topic,
		"sessions": delivered,
	})

	if !f.brokerEnabled || f.broker == nil {
		return
	}
	if err := f.broker.Publish(ctx, topic, body); err != nil {
		atomic.AddInt64(&f.brokerFailures, 1)
		f.logger.Error("broker_publish_failed", "Failed to republish event to broker", "", map[string]any{"topic": topic}, err)
	}
}

// PublishStaff targets the given user ids; when none are resolvable the
// event is broadcast to the whole role instead of being dropped.
func (f *Fanout) PublishStaff(ctx context.Context, topic string, payload any, role domain.Role, userIDs []int64) {
	targeting := interfaces.Targeting{UserIDs: userIDs}
	if len(userIDs) == 0 {
		targeting = interfaces.Targeting{Roles: []domain.Role{role}}
	}
	f.Publish(ctx, topic, payload, targeting)
}

// BrokerFailures exposes the broker-channel failure counter.
func (f *Fanout) BrokerFailures() int64 {
	return atomic.LoadInt64(&f.brokerFailures)
}

// SocketFailures exposes the socket-channel failure counter.
func (f *Fanout) SocketFailures() int64 {
	return atomic.LoadInt64(&f.socketFailures)
}
