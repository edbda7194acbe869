// Package registrar keeps this service's rooms registered with the map.
// A single reconciler loop ticks on a fixed interval and, for every room
// still pending, brings the map's record in line with the room's live
// configuration, then applies whatever exit wiring the map hands back.
package registrar

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gameontext/room/internal/engine"
	"github.com/gameontext/room/internal/mapclient"
)

// Reconciler drives room registration against the map. Run executes ticks
// from one goroutine, so ticks never overlap.
type Reconciler struct {
	client   *mapclient.Client
	pending  *PendingSet
	owner    string
	callback string
	interval time.Duration
}

func New(client *mapclient.Client, pending *PendingSet, owner, callback string, interval time.Duration) *Reconciler {
	return &Reconciler{
		client:   client,
		pending:  pending,
		owner:    owner,
		callback: strings.TrimSuffix(callback, "/"),
		interval: interval,
	}
}

// Run ticks immediately and then on every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("registrar started, %d rooms to register", r.pending.Len())
	r.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("registrar stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick reconciles every pending room once. With nothing pending it returns
// without any network traffic.
func (r *Reconciler) Tick(ctx context.Context) {
	if r.pending.Empty() {
		return
	}

	if !r.client.Healthy(ctx) {
		log.Println("map service not healthy, deferring registration")
		return
	}

	for _, room := range r.pending.Snapshot() {
		if r.reconcile(ctx, room) {
			r.pending.Remove(room.ID())
			log.Printf("room %s registered with the map", room.ID())
		}
	}
}

// reconcile brings one room's map record in line with its configuration.
// Returns true only when a register/update (or a confirmed match) succeeded
// and the returned exits were applied; any unavailable outcome leaves the
// room pending for the next tick.
func (r *Reconciler) reconcile(ctx context.Context, room *engine.Room) bool {
	q := r.client.QueryByOwnerAndName(ctx, r.owner, room.ID())
	switch q.Kind {
	case mapclient.NotFound:
		res := r.client.Create(ctx, r.payload(room))
		if res.Kind != mapclient.Found {
			return false
		}
		r.applyExits(room, res.Record)
		return true

	case mapclient.Found:
		fetched := r.client.FetchByID(ctx, q.ID)
		if fetched.Kind != mapclient.Found {
			return false
		}
		if r.inSync(room, &fetched.Record.Info) {
			log.Printf("room %s already up to date in map, no update required", room.ID())
			r.applyExits(room, fetched.Record)
			return true
		}
		res := r.client.Update(ctx, fetched.Record.ID, r.payload(room))
		if res.Kind != mapclient.Found {
			return false
		}
		r.applyExits(room, res.Record)
		return true

	default:
		return false
	}
}

// payload builds the full registration state for a room. Updates always
// send the whole state, never a partial patch.
func (r *Reconciler) payload(room *engine.Room) mapclient.RoomInfo {
	return mapclient.RoomInfo{
		Name:        room.ID(),
		FullName:    room.Name(),
		Description: room.Description(),
		Doors:       doorMap(room),
		ConnectionDetails: mapclient.ConnectionDetails{
			Type:   "websocket",
			Target: r.endpointFor(room),
		},
	}
}

// endpointFor is the external websocket address other rooms use to reach
// this one.
func (r *Reconciler) endpointFor(room *engine.Room) string {
	return r.callback + "/rooms/ws/" + room.ID()
}

// inSync reports whether the stored info matches the room's configuration
// exactly: names, description, the complete door set and the connection
// details. Doors are compared as a map equality, so missing directions and
// extra directions both count as a mismatch.
func (r *Reconciler) inSync(room *engine.Room, info *mapclient.RoomInfo) bool {
	if info.Name != room.ID() || info.FullName != room.Name() || info.Description != room.Description() {
		log.Printf("room %s: basic info differs from map record", room.ID())
		return false
	}

	want := doorMap(room)
	if len(info.Doors) != len(want) {
		log.Printf("room %s: door count mismatch", room.ID())
		return false
	}
	for dir, desc := range want {
		if got, ok := info.Doors[dir]; !ok || got != desc {
			log.Printf("room %s: door %s differs from map record", room.ID(), dir)
			return false
		}
	}

	if info.ConnectionDetails.Type != "websocket" || info.ConnectionDetails.Target != r.endpointFor(room) {
		log.Printf("room %s: connection details differ from map record", room.ID())
		return false
	}
	return true
}

// applyExits replaces the room's exit table with the wiring the map
// returned.
func (r *Reconciler) applyExits(room *engine.Room, rec *mapclient.Record) {
	exits := make(map[engine.Direction]engine.Exit, len(rec.Exits))
	for dir, e := range rec.Exits {
		exit := engine.Exit{
			Direction: engine.Direction(dir),
			Name:      e.Name,
			FullName:  e.FullName,
			Door:      e.Door,
			ID:        e.ID,
		}
		if e.ConnectionDetails != nil {
			exit.ConnType = e.ConnectionDetails.Type
			exit.ConnTarget = e.ConnectionDetails.Target
		}
		exits[exit.Direction] = exit
	}
	room.SetExits(exits)
}

func doorMap(room *engine.Room) map[string]string {
	doors := room.Doors()
	m := make(map[string]string, len(doors))
	for _, d := range doors {
		m[string(d.Direction)] = d.Description
	}
	return m
}
