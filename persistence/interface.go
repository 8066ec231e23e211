// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/arena/models"
)

// Database 数据库接口。两个 PostgreSQL 实现：GORM 版与 database/sql 版。
type Database interface {
	SavePlayerProfile(playerID, name string, data map[string]interface{}) error
	LoadPlayerProfile(playerID string, result *map[string]interface{}) error
	// SaveMatchRecord 落库一条对局记录，并在同一事务里累加每个玩家的统计
	SaveMatchRecord(record *models.MatchRecord) error
	SaveRoomSnapshot(snapshot *models.RoomSnapshot) error
	GetPlayerStats(playerID string) (map[string]interface{}, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
