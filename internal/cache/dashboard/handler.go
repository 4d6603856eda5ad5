package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
	cachesync "github.com/devmasterteam/pokecache/internal/cache/sync"
	"github.com/devmasterteam/pokecache/internal/logging"
)

// PokemonSnapshotData contains the cached catalog
type PokemonSnapshotData struct {
	Count   int               `json:"count"`
	Pokemon []*schema.Pokemon `json:"pokemon"`
}

// TeamsSnapshotData contains every team with its members
type TeamsSnapshotData struct {
	Count int              `json:"count"`
	Teams []*schema.Roster `json:"teams"`
}

// Source is the observable part of the local store.
type Source interface {
	WatchEntities(ctx context.Context, filter schema.Filter) <-chan []*schema.Pokemon
	WatchRosters(ctx context.Context) <-chan []*schema.Roster
}

// Handler turns store snapshots and sync runs into dashboard messages.
// It bridges between the cache and the WebSocket server.
type Handler struct {
	server *Server
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *slog.Logger) *Handler {
	return &Handler{
		server: server,
		logger: logging.Component(logger, "dashboard"),
	}
}

// Watch forwards catalog and team snapshots from src until ctx is done.
func (h *Handler) Watch(ctx context.Context, src Source) {
	pokemon := src.WatchEntities(ctx, schema.AllPokemon())
	rosters := src.WatchRosters(ctx)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		for list := range pokemon {
			h.OnPokemon(list)
		}
	}()
	go func() {
		defer h.wg.Done()
		for list := range rosters {
			h.OnRosters(list)
		}
	}()
}

// Wait blocks until the goroutines started by Watch have returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// OnPokemon broadcasts a catalog snapshot.
func (h *Handler) OnPokemon(list []*schema.Pokemon) {
	logging.Debug(h.logger, "pokemon snapshot", logging.FieldCount, len(list))
	h.publish(MessageTypePokemonSnapshot, PokemonSnapshotData{Count: len(list), Pokemon: list})
}

// OnRosters broadcasts a team snapshot.
func (h *Handler) OnRosters(list []*schema.Roster) {
	logging.Debug(h.logger, "teams snapshot", logging.FieldCount, len(list))
	h.publish(MessageTypeTeamsSnapshot, TeamsSnapshotData{Count: len(list), Teams: list})
}

// OnRun broadcasts a sync run transition. It matches the synchronizer's
// OnRun hook and never blocks.
func (h *Handler) OnRun(run cachesync.Run) {
	h.publish(MessageTypeSyncRun, run)
}

func (h *Handler) publish(typ MessageType, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		logging.Error(h.logger, "failed to marshal message data", err, "type", typ)
		return
	}

	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
