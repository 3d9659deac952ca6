package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	natsadapter "github.com/samirrijal/fieldtrace/internal/adapters/nats"
	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/pkg/config"
)

// The replayer feeds recorded device traces into the position stream, for
// local development and load testing. Input is a CSV with a header row:
//
//	employee_id,lat,lon,time[,accuracy]
//
// Samples are published in file order. With -realtime the replayer sleeps
// the recorded gap between consecutive samples (divided by -speed);
// otherwise it publishes as fast as NATS accepts.
func main() {
	var (
		path     = flag.String("file", "trace.csv", "CSV trace to replay")
		realtime = flag.Bool("realtime", false, "replay with recorded timing")
		speed    = flag.Float64("speed", 1.0, "timing multiplier for -realtime")
		rebase   = flag.Bool("rebase", false, "shift sample times so the trace ends now")
	)
	flag.Parse()

	cfg, err := config.Load("fieldtrace-replayer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open trace: %v", err)
	}
	defer f.Close()

	events, err := readTrace(f)
	if err != nil {
		log.Fatalf("read trace: %v", err)
	}
	if len(events) == 0 {
		log.Fatal("trace is empty")
	}

	if *rebase {
		shift := time.Since(events[len(events)-1].Position.Time)
		for i := range events {
			events[i].Position.Time = events[i].Position.Time.Add(shift)
		}
	}

	log.Printf("replaying %d samples from %s", len(events), *path)

	ctx := context.Background()
	published := 0
	for i, ev := range events {
		if *realtime && i > 0 {
			gap := ev.Position.Time.Sub(events[i-1].Position.Time)
			if gap > 0 {
				time.Sleep(time.Duration(float64(gap) / *speed))
			}
		}

		if err := pub.PublishPosition(ctx, &events[i]); err != nil {
			log.Printf("publish sample %d (%s): %v", i, ev.EmployeeID, err)
			continue
		}
		published++
	}

	log.Printf("done: %d/%d samples published", published, len(events))
}

func readTrace(r io.Reader) ([]ports.PositionEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var events []ports.PositionEvent
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "employee_id" {
			continue // header
		}
		if len(rec) < 4 {
			log.Printf("line %d: want at least 4 fields, got %d, skipping", line, len(rec))
			continue
		}

		lat, errLat := strconv.ParseFloat(rec[1], 64)
		lon, errLon := strconv.ParseFloat(rec[2], 64)
		ts, errTime := time.Parse(time.RFC3339, rec[3])
		if errLat != nil || errLon != nil || errTime != nil {
			log.Printf("line %d: unparseable sample, skipping", line)
			continue
		}

		pos := domain.Position{
			GeoPoint: domain.GeoPoint{Lat: lat, Lon: lon},
			Time:     ts,
		}
		if len(rec) > 4 && rec[4] != "" {
			if acc, err := strconv.ParseFloat(rec[4], 64); err == nil {
				pos.Accuracy = &acc
			}
		}

		events = append(events, ports.PositionEvent{
			EmployeeID: rec[0],
			Position:   pos,
		})
	}
	return events, nil
}
