// services/match_service.go
package services

import (
	"fmt"

	"github.com/wfunc/arena/models"
	"github.com/wfunc/arena/persistence"
)

// MatchService 负责对局存档与玩家档案的读写
type MatchService struct {
	db persistence.Database
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// RecordMatch 在房间被回收时落库一条对局记录
func (s *MatchService) RecordMatch(record *models.MatchRecord) error {
	if err := s.db.SaveMatchRecord(record); err != nil {
		return fmt.Errorf("save match record for room %s: %w", record.RoomID, err)
	}
	return nil
}

// TouchProfile 在玩家加入时更新（或创建）其档案
func (s *MatchService) TouchProfile(playerID, name string) error {
	return s.db.SavePlayerProfile(playerID, name, map[string]interface{}{
		"name": name,
	})
}

// GetPlayerWithStats 获取玩家档案和对局统计
func (s *MatchService) GetPlayerWithStats(playerID string) (map[string]interface{}, error) {
	var profile map[string]interface{}
	if err := s.db.LoadPlayerProfile(playerID, &profile); err != nil {
		if err != persistence.ErrRecordNotFound {
			return nil, err
		}
		profile = map[string]interface{}{}
	}

	stats, err := s.db.GetPlayerStats(playerID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"player": profile,
		"stats":  stats,
	}, nil
}

// SnapshotRoom 周期性地把房间的大厅视图落库，便于运维排查
func (s *MatchService) SnapshotRoom(snapshot *models.RoomSnapshot) error {
	return s.db.SaveRoomSnapshot(snapshot)
}
