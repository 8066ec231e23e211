// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayerProfile 玩家档案表
type GormPlayerProfile struct {
	gorm.Model
	PlayerID string                 `gorm:"uniqueIndex;not null"`
	Name     string                 `gorm:"not null"`
	Data     map[string]interface{} `gorm:"type:jsonb;serializer:json"`
	Stats    map[string]interface{} `gorm:"type:jsonb;serializer:json"`
}

// GormMatchRecord 对局记录表
type GormMatchRecord struct {
	gorm.Model
	RoomID  string                 `gorm:"index;not null"`
	Round   int                    `gorm:"default:1"`
	Ticks   int64                  `gorm:"default:0"`
	Players map[string]interface{} `gorm:"type:jsonb;serializer:json;not null"`
}

// GormRoomSnapshot 房间快照表
type GormRoomSnapshot struct {
	gorm.Model
	RoomID  string                 `gorm:"uniqueIndex;not null"`
	State   string                 `gorm:"not null"`
	Players map[string]interface{} `gorm:"type:jsonb;serializer:json"`
}

func (GormPlayerProfile) TableName() string { return "player_profiles" }
func (GormMatchRecord) TableName() string   { return "match_records" }
func (GormRoomSnapshot) TableName() string  { return "room_snapshots" }
