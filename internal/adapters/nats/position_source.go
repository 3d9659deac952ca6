package natsadapter

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
)

// PositionConn is the subset of the NATS connection the source subscribes
// through.
type PositionConn interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// PositionSource implements ports.PositionSource over a plain NATS
// subscription to one employee's position subject. Undecodable messages
// surface as POSITION_UNAVAILABLE instead of killing the watch.
type PositionSource struct {
	conn PositionConn
}

func NewPositionSource(conn PositionConn) *PositionSource {
	return &PositionSource{conn: conn}
}

func (s *PositionSource) Watch(employeeID string, onUpdate func(domain.Position), onError func(ports.TrackErrorKind)) (ports.Subscription, error) {
	sub, err := s.conn.Subscribe("field.position."+employeeID, func(msg *nats.Msg) {
		var ev ports.PositionEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			onError(ports.ErrKindPositionUnavailable)
			return
		}
		onUpdate(ev.Position)
	})
	if err != nil {
		return nil, err
	}
	return &natsSubscription{sub: sub}, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (n *natsSubscription) Unsubscribe() error {
	return n.sub.Unsubscribe()
}
