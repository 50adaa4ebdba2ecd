// Package influx pushes server gauges to InfluxDB once a minute.
package influx

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/extrachat/server/internal/config"
	"github.com/extrachat/server/internal/persist"
	"github.com/extrachat/server/internal/registry"
)

const pushInterval = time.Minute

// Pusher samples the registry and database counters and writes them as
// single-field points sharing one timestamp per batch.
type Pusher struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	reg    *registry.Registry
	stats  *persist.StatsRepo
	log    *zap.Logger

	lastMessages uint64
}

func New(cfg config.InfluxConfig, reg *registry.Registry, stats *persist.StatsRepo, log *zap.Logger) *Pusher {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Pusher{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		reg:    reg,
		stats:  stats,
		log:    log,
	}
}

// Run pushes immediately and then once per interval until the context
// ends.
func (p *Pusher) Run(ctx context.Context) error {
	defer p.client.Close()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()
	for {
		p.push(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pusher) push(ctx context.Context) {
	now := time.Now()

	messages := p.reg.MessagesSent()
	diff := messages - p.lastMessages
	p.lastMessages = messages

	points := []*write.Point{
		influxdb2.NewPoint("logged_in", nil, map[string]interface{}{"value": uint64(p.reg.Len())}, now),
		influxdb2.NewPoint("messages_this_instance", nil, map[string]interface{}{"value": messages}, now),
		influxdb2.NewPoint("messages_new", nil, map[string]interface{}{"value": diff}, now),
	}

	// Database gauges are best effort; a failed count just drops that
	// point from the batch.
	gauges := []struct {
		name  string
		query func(context.Context) (int64, error)
	}{
		{"users", p.stats.Users},
		{"users_in_at_least_one_linkshell", p.stats.UsersInChannels},
		{"linkshells", p.stats.Channels},
		{"outstanding_invites", p.stats.Invites},
	}
	for _, g := range gauges {
		n, err := g.query(ctx)
		if err != nil {
			continue
		}
		points = append(points, influxdb2.NewPoint(g.name, nil, map[string]interface{}{"value": uint64(n)}, now))
	}

	if err := p.write.WritePoint(ctx, points...); err != nil {
		p.log.Error("failed to send to influxdb", zap.Error(err))
		return
	}
	p.log.Debug("sent to influxdb")
}
