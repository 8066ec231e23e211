// room/manager.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/arena/state"
)

// Manager 管理所有房间的创建、查找与回收
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex

	grace        time.Duration
	tickInterval time.Duration
}

// NewManager 创建房间管理器。grace/tickInterval 传 0 时使用默认值。
func NewManager(grace, tickInterval time.Duration) *Manager {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Manager{
		rooms:        make(map[string]*Room),
		grace:        grace,
		tickInterval: tickInterval,
	}
}

// CreateRoom 创建一个新房间并启动它的 Tick 循环
func (m *Manager) CreateRoom(id string, maxPlayers int, broadcaster Broadcaster) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r := NewRoom(id, maxPlayers, broadcaster)
	r.SetGracePeriod(m.grace)
	r.Start(m.tickInterval)
	m.rooms[id] = r
	return r
}

// RemoveRoom 停止并移除一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.rooms[id]; exists {
		r.Close()
		delete(m.rooms, id)
	}
}

// GetRoom 按 ID 查找房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// Rooms 返回当前所有房间的副本切片
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Count 返回当前房间数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// FindAvailableRoom 查找一个可加入的房间（等待中且未满）
func (m *Manager) FindAvailableRoom() *Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, r := range m.rooms {
		if r.State() == state.Waiting && !r.IsFull() {
			return r
		}
	}
	return nil
}

// ReapExpired 移除所有可回收的房间并返回它们，由调用方做善后（存档等）
func (m *Manager) ReapExpired() []*Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var reaped []*Room
	for id, r := range m.rooms {
		if r.ShouldCleanup() {
			r.Close()
			delete(m.rooms, id)
			reaped = append(reaped, r)
		}
	}
	return reaped
}
