package natsadapter_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/fieldtrace/internal/adapters/nats"
	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

// fakeConn captures the subscription so tests can inject messages directly.
type fakeConn struct {
	subject string
	cb      nats.MsgHandler
}

func (f *fakeConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.subject = subj
	f.cb = cb
	return nil, nil
}

func positionMsg(t *testing.T, employeeID string, lat, lon float64) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(ports.PositionEvent{
		EmployeeID: employeeID,
		Position: domain.Position{
			GeoPoint: domain.GeoPoint{Lat: lat, Lon: lon},
			Time:     time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &nats.Msg{Data: data}
}

func TestWatch_DeliversDecodedPositions(t *testing.T) {
	conn := &fakeConn{}
	src := natsadapter.NewPositionSource(conn)

	var got []domain.Position
	var kinds []ports.TrackErrorKind
	sub, err := src.Watch("e1",
		func(p domain.Position) { got = append(got, p) },
		func(k ports.TrackErrorKind) { kinds = append(kinds, k) })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if sub == nil {
		t.Fatal("expected a subscription handle")
	}
	if conn.subject != "field.position.e1" {
		t.Fatalf("expected subject field.position.e1, got %s", conn.subject)
	}

	conn.cb(positionMsg(t, "e1", 28.6139, 77.2090))

	if len(got) != 1 || got[0].Lat != 28.6139 || got[0].Lon != 77.2090 {
		t.Fatalf("expected one decoded position, got %+v", got)
	}
	if len(kinds) != 0 {
		t.Errorf("expected no errors, got %v", kinds)
	}
}

func TestWatch_BadPayloadSurfacesUnavailable(t *testing.T) {
	conn := &fakeConn{}
	src := natsadapter.NewPositionSource(conn)

	var kinds []ports.TrackErrorKind
	_, err := src.Watch("e1",
		func(domain.Position) { t.Error("undecodable message must not produce an update") },
		func(k ports.TrackErrorKind) { kinds = append(kinds, k) })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	conn.cb(&nats.Msg{Data: []byte("not json")})

	if len(kinds) != 1 || kinds[0] != ports.ErrKindPositionUnavailable {
		t.Fatalf("expected POSITION_UNAVAILABLE, got %v", kinds)
	}
}

func TestWatch_DrivesLocationTracker(t *testing.T) {
	conn := &fakeConn{}
	src := natsadapter.NewPositionSource(conn)
	tracker := usecases.NewLocationTracker(src, usecases.TrackerConfig{})

	var got []domain.Position
	handle, err := tracker.Start("e1",
		func(p domain.Position) { got = append(got, p) },
		func(ports.TrackErrorKind) {})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer handle.Stop()

	conn.cb(positionMsg(t, "e1", 28.6139, 77.2090))

	if len(got) != 1 {
		t.Fatalf("expected the fresh sample to pass the filters, got %d", len(got))
	}
	last := tracker.GetLastPosition()
	if last == nil || last.Lat != 28.6139 {
		t.Errorf("expected the sample recorded as last position, got %+v", last)
	}
}
