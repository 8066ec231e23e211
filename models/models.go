// models/models.go
package models

import (
	"time"
)

// MatchRecord 一局结束后的存档记录
type MatchRecord struct {
	RoomID    string        `json:"room_id"`
	Round     int           `json:"round"`
	Ticks     int64         `json:"ticks"`
	Players   []MatchPlayer `json:"players"`
	CreatedAt time.Time     `json:"created_at"`
}

// MatchPlayer 存档记录中的玩家信息
type MatchPlayer struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Outcome     string `json:"outcome"` // win/lose/abandoned
}

// RoomSnapshot 房间状态快照（周期性落库，便于运维观察）
type RoomSnapshot struct {
	RoomID    string                 `json:"room_id"`
	State     string                 `json:"state"`
	Players   map[string]interface{} `json:"players"`
	UpdatedAt time.Time              `json:"updated_at"`
}
