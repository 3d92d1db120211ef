package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/realtime"
	"github.com/rubiojr/itemsearch/pkg/version"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) itemResponse(item *core.OwnedItem) ItemResponse {
	resp := ItemResponse{
		ItemID:    item.ItemID,
		Count:     item.StackCount(),
		SkinID:    item.SkinID,
		Upgrades:  item.Upgrades,
		Infusions: item.Infusions,
		Source:    item.Source.String(),
		Character: item.Character,
		Rarity:    core.RarityUnknown.String(),
	}
	if e, ok := s.engine.Lookup(item.ItemID); ok {
		resp.Name = e.Name
		resp.Rarity = e.Rarity.String()
		resp.Icon = e.Icon
	}
	return resp
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	snap, items, err := s.engine.SearchSnapshot(query)
	if errors.Is(err, engine.ErrNotReady) {
		s.writeError(w, http.StatusServiceUnavailable, "Not ready", err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	total := len(items)
	if limit > 0 && total > limit {
		items = items[:limit]
	}
	resp := SearchResponse{
		Query:          query,
		Items:          make([]ItemResponse, len(items)),
		Count:          len(items),
		Total:          total,
		MinQueryLength: s.engine.MinQueryLength(),
		SnapshotID:     snap.ID,
	}
	for i, item := range items {
		resp.Items[i] = s.itemResponse(item)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid id", "item id must be an integer")
		return
	}
	entry, ok := s.engine.Lookup(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Item not found", "no catalog entry with id "+strconv.Itoa(id))
		return
	}

	resp := CatalogItemResponse{
		ID:     entry.ID,
		Name:   entry.Name,
		Rarity: entry.Rarity.String(),
		Icon:   entry.Icon,
		Owned:  []ItemResponse{},
	}
	if snap := s.engine.Snapshot(); snap != nil {
		for _, item := range snap.Owned.Get(id) {
			resp.Owned = append(resp.Owned, s.itemResponse(item))
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		State:     s.engine.State().String(),
		Listeners: s.hub.Size(),
	}
	if snap := s.engine.Snapshot(); snap != nil {
		ev := realtime.NewSnapshotEvent(snap)
		resp.Snapshot = &ev
	}
	return resp
}

func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		s.writeError(w, http.StatusNotImplemented, "Refresh disabled", "this server has no account source")
		return
	}
	// A client hanging up must not cut the refresh short.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.refreshTimeout)
	defer cancel()
	_, err := s.refresher.RefreshNow(ctx)
	if errors.Is(err, engine.ErrInitializeInProgress) {
		s.writeError(w, http.StatusConflict, "Refresh in progress", err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Refresh failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.status())
}

// HandleEvents upgrades to a websocket, sends the current status as an
// "init" message and then every snapshot event until the client goes away.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)

	hello := struct {
		Type   string         `json:"type"`
		Status StatusResponse `json:"status"`
	}{Type: "init", Status: s.status()}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	// Reads only detect the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debugf("websocket write: %v", err)
				return
			}
		}
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   version.Version,
	})
}
