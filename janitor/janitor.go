// Package janitor implements the idle-connection reaper spec §9's second
// open question invites ("implementers MAY add a janitor that evicts
// records whose last_activity exceeds a threshold, without changing the
// wire contract").
package janitor

import (
	"fmt"
	"time"

	"github.com/go-zoox/logger"
	"github.com/robfig/cron/v3"

	"github.com/go-zoox/httunnel/connection"
	"github.com/go-zoox/httunnel/registry"
)

// DefaultIdleTimeout is the suggested idle ceiling (spec §5).
const DefaultIdleTimeout = 3 * time.Minute

// DefaultInterval is how often the janitor sweeps the registry.
const DefaultInterval = 30 * time.Second

// Janitor periodically evicts registry entries that have sat idle past
// IdleTimeout. Eviction here is additive to, not a substitute for, the
// dispatcher's own eviction on DISCONNECT/write-failure/CLOSED-read: the
// wire contract (spec §6) is unaffected either way.
type Janitor struct {
	Registry    *registry.Registry
	IdleTimeout time.Duration
	Interval    time.Duration

	runner  *cron.Cron
	entryID cron.EntryID
}

func New(reg *registry.Registry) *Janitor {
	return &Janitor{
		Registry:    reg,
		IdleTimeout: DefaultIdleTimeout,
		Interval:    DefaultInterval,
	}
}

// Start schedules the sweep on its own cron runner and returns
// immediately; Stop cancels it.
func (j *Janitor) Start() error {
	j.runner = cron.New()
	id, err := j.runner.AddFunc(fmt.Sprintf("@every %s", j.Interval), j.sweep)
	if err != nil {
		return err
	}
	j.entryID = id
	j.runner.Start()
	return nil
}

func (j *Janitor) Stop() {
	if j.runner != nil {
		j.runner.Remove(j.entryID)
		j.runner.Stop()
	}
}

func (j *Janitor) sweep() {
	var stale []string
	j.Registry.ForEach(func(id string, record *connection.Record) bool {
		if time.Since(record.LastActivity()) > j.IdleTimeout {
			stale = append(stale, id)
		}
		return true
	})

	for _, id := range stale {
		logger.Debugf("[janitor] evicting idle connection %s", id)
		j.Registry.Remove(id)
	}
}
