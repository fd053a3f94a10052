// Package registry implements the connection registry (spec component C):
// the single map from connection id to connection.Record that the
// dispatcher and the idle janitor share.
package registry

import (
	"fmt"
	"net"

	"github.com/go-zoox/logger"

	"github.com/go-zoox/httunnel/connection"
	"github.com/go-zoox/httunnel/manager"
)

// Registry hands out fresh ids on Create, re-rolling until the id is not
// held by any live record (spec §4.C invariant), backed by the generic
// id-keyed cache manager in the manager package.
type Registry struct {
	records *manager.Manager[*connection.Record]

	// HighWaterMark/LowWaterMark override each new record's backpressure
	// thresholds (spec §9, first open question). Zero keeps the
	// connection package's own defaults.
	HighWaterMark int
	LowWaterMark  int
}

func New() *Registry {
	return &Registry{
		records: manager.New[*connection.Record](),
	}
}

// Create mints a fresh id, wraps socket in a connection.Record, starts its
// read pump, and stores it. The read pump starts before Create returns so
// that a READ arriving immediately after CONNECT already sees traffic.
func (reg *Registry) Create(socket net.Conn) (id string, record *connection.Record) {
	for {
		id = connection.GenerateID()
		if !reg.records.Has(id) {
			break
		}
	}

	record = connection.New(id, socket)
	if reg.HighWaterMark > 0 && reg.LowWaterMark > 0 {
		record.SetWatermarks(reg.HighWaterMark, reg.LowWaterMark)
	}
	_ = reg.records.Set(id, record)
	connection.StartReadPump(record)

	logger.Debugf("[registry] created connection %s -> %s", id, socket.RemoteAddr())
	return id, record
}

// Lookup returns the record for id, or an error if it is absent — either
// never created or already removed (spec §4.E: "an unknown id" case).
func (reg *Registry) Lookup(id string) (*connection.Record, error) {
	record, err := reg.records.Get(id)
	if err != nil {
		return nil, fmt.Errorf("connection %s not found", id)
	}
	return record, nil
}

// Remove closes and drops id. It is idempotent: removing an id twice, or
// an id that was never created, is a no-op (spec §4.C invariant).
func (reg *Registry) Remove(id string) {
	record, err := reg.records.Get(id)
	if err != nil {
		return
	}
	record.Close()
	reg.records.Remove(id)
	logger.Debugf("[registry] removed connection %s", id)
}

// ForEach visits every live record, for the idle janitor's sweep.
func (reg *Registry) ForEach(fn func(id string, record *connection.Record) bool) {
	reg.records.ForEach(fn)
}
