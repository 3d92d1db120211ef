package api

import (
	"time"

	"github.com/rubiojr/itemsearch/pkg/realtime"
)

type ItemResponse struct {
	ItemID    int    `json:"item_id"`
	Name      string `json:"name"`
	Rarity    string `json:"rarity"`
	Icon      string `json:"icon,omitempty"`
	Count     int    `json:"count"`
	SkinID    int    `json:"skin_id,omitempty"`
	Upgrades  []int  `json:"upgrades,omitempty"`
	Infusions []int  `json:"infusions,omitempty"`
	Source    string `json:"source"`
	Character string `json:"character,omitempty"`
}

type SearchResponse struct {
	Query          string         `json:"query"`
	Items          []ItemResponse `json:"items"`
	Count          int            `json:"count"`
	Total          int            `json:"total"`
	MinQueryLength int            `json:"min_query_length"`
	SnapshotID     string         `json:"snapshot_id"`
}

type CatalogItemResponse struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Rarity string         `json:"rarity"`
	Icon   string         `json:"icon,omitempty"`
	Owned  []ItemResponse `json:"owned"`
}

type StatusResponse struct {
	State     string                  `json:"state"`
	Snapshot  *realtime.SnapshotEvent `json:"snapshot,omitempty"`
	Listeners int                     `json:"listeners"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
