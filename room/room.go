// room/room.go
package room

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/arena/logger"
	"github.com/wfunc/arena/models"
	"github.com/wfunc/arena/physics"
	"github.com/wfunc/arena/player"
	"github.com/wfunc/arena/state"
)

const (
	// DefaultGracePeriod 对局中房间掉空后保留断线玩家的时长
	DefaultGracePeriod = 30 * time.Second

	// DefaultTickInterval 模拟推进间隔（10 TPS）
	DefaultTickInterval = 100 * time.Millisecond
)

// Room 是游戏房间的核心结构：持有当前连接的玩家、可恢复的断线玩家、
// 生命周期状态与 Tick 计数。所有修改都经过同一把房间级互斥锁。
type Room struct {
	ID         string
	MaxPlayers int

	mu           sync.Mutex
	state        state.State
	players      map[string]*player.Player
	disconnected map[string]*player.Player
	tick         int64
	round        int
	nextSpawn    int
	emptySince   time.Time
	grace        time.Duration
	broadcaster  Broadcaster

	ticker    *time.Ticker
	closeOnce sync.Once
	closeChan chan struct{}
}

// NewRoom 创建一个处于等待状态的房间。broadcaster 为 nil 时退化为空投递。
func NewRoom(id string, maxPlayers int, broadcaster Broadcaster) *Room {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Room{
		ID:           id,
		MaxPlayers:   maxPlayers,
		state:        state.Waiting,
		players:      make(map[string]*player.Player),
		disconnected: make(map[string]*player.Player),
		round:        1,
		grace:        DefaultGracePeriod,
		broadcaster:  broadcaster,
		closeChan:    make(chan struct{}),
	}
}

// SetGracePeriod 覆盖默认的断线宽限时长
func (r *Room) SetGracePeriod(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grace = d
}

// --- 玩家管理 ---

// AddPlayer 将玩家加入房间。同一 ID 已连接、房间已满或已结束时返回 false。
// 若该 ID 在断线名单里，则视为重连：恢复断线前的位置、准备状态与未决输入，
// 仅用本次加入携带的名字覆盖展示字段。
func (r *Room) AddPlayer(p *player.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[p.ID]; ok {
		return false
	}

	if saved, ok := r.disconnected[p.ID]; ok {
		saved.Name = p.Name
		saved.DisplayName = p.DisplayName
		delete(r.disconnected, p.ID)
		p = saved
		logger.Log.Infof("player %s (%s) reconnected to room %s at (%.0f,%.0f)",
			p.ID, p.Name, r.ID, p.X, p.Y)
	} else {
		if len(r.players) >= r.MaxPlayers {
			return false
		}
		if r.state == state.Finished {
			return false
		}
		if r.state == state.Playing {
			// 对局中的晚加入者立即分配出生点，游标不回绕重置
			pos := physics.SpawnPositions[r.nextSpawn%len(physics.SpawnPositions)]
			p.Spawn(pos[0], pos[1])
			r.nextSpawn++
		}
		logger.Log.Infof("player %s (%s) joined room %s", p.ID, p.Name, r.ID)
	}

	r.players[p.ID] = p
	r.emptySince = time.Time{}
	return true
}

// RemovePlayer 将玩家移出房间。对局中移除的玩家会被保留到断线名单，
// 等待宽限期内重连；等待中的房间掉空则直接标记结束。
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}

	if r.state == state.Playing {
		r.disconnected[playerID] = p
		logger.Log.Infof("player %s disconnected from room %s (saved for reconnect, grace=%v)",
			playerID, r.ID, r.grace)
	} else {
		logger.Log.Infof("player %s left room %s", playerID, r.ID)
	}

	delete(r.players, playerID)

	if len(r.players) == 0 {
		if r.state == state.Playing && len(r.disconnected) > 0 {
			r.emptySince = time.Now()
			logger.Log.Infof("room %s has no connected players, grace period started", r.ID)
		} else if r.state == state.Waiting {
			r.setStateLocked(state.Finished)
			logger.Log.Infof("room %s is now empty, marked finished", r.ID)
		}
	}
}

func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[playerID]
	return ok
}

func (r *Room) GetPlayer(playerID string) (*player.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	return p, ok
}

func (r *Room) IsFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) >= r.MaxPlayers
}

func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// State 返回当前生命周期状态
func (r *Room) State() state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Tick 返回当前模拟步数
func (r *Room) Tick() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

// ShouldCleanup 报告房间是否可以被外层回收：已结束且无人连接，
// 或者宽限期已经用尽。纯查询，不触发状态转换。
func (r *Room) ShouldCleanup() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == state.Finished && len(r.players) == 0 {
		return true
	}
	if !r.emptySince.IsZero() && time.Since(r.emptySince) >= r.grace {
		return true
	}
	return false
}

// --- 大厅 ---

// SetPlayerReady 更新准备标记并广播；全员准备（至少2人）时自动开局
func (r *Room) SetPlayerReady(playerID string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}
	p.Ready = ready

	r.broadcastLocked(models.ReadyStateEvent{
		Type:     models.EventReadyState,
		PlayerID: playerID,
		Ready:    ready,
	})

	logger.Log.Debugf("player %s ready=%v in room %s", playerID, ready, r.ID)

	if r.allReadyLocked() && r.state == state.Waiting {
		logger.Log.Infof("all players ready in room %s, starting game", r.ID)
		r.startGameLocked()
	}
}

func (r *Room) allReadyLocked() bool {
	if len(r.players) < 2 {
		return false
	}
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// --- 聊天 ---

// HandleChat 将聊天内容原样广播给房间内所有玩家
func (r *Room) HandleChat(senderID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[senderID]
	if !ok {
		return
	}

	r.broadcastLocked(models.ChatEvent{
		Type:       models.EventChatMessage,
		PlayerID:   senderID,
		PlayerName: p.Name,
		Message:    message,
	})
}

// --- 对局 ---

// StartGame 触发 WAITING→PLAYING 转换：重置 Tick 与出生点游标、
// 给所有在场玩家分配出生点并广播 game_start。
// 非等待状态或准备人数不满足时是空操作。
func (r *Room) StartGame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startGameLocked()
}

func (r *Room) startGameLocked() {
	if r.state != state.Waiting || !r.allReadyLocked() {
		return
	}

	r.setStateLocked(state.Playing)
	r.tick = 0
	r.nextSpawn = 0

	spawnPoints := make([]models.SpawnPoint, 0, len(r.players))
	for _, id := range r.sortedIDsLocked() {
		p := r.players[id]
		pos := physics.SpawnPositions[r.nextSpawn%len(physics.SpawnPositions)]
		p.Spawn(pos[0], pos[1])
		r.nextSpawn++
		spawnPoints = append(spawnPoints, models.SpawnPoint{PlayerID: id, X: p.X, Y: p.Y})
	}

	r.broadcastLocked(models.GameStartEvent{
		Type:  models.EventGameStart,
		Round: r.round,
		MapData: models.MapData{
			Width:   physics.MapWidth,
			Height:  physics.MapHeight,
			GroundY: physics.GroundY,
		},
		SpawnPoints: spawnPoints,
	})

	logger.Log.Infof("game started in room %s with %d players", r.ID, len(r.players))
}

// Update 推进一个模拟步。仅在对局中生效：先检查宽限期是否用尽，
// 有人在场才递增 Tick、处理各玩家输入并广播对局快照。
func (r *Room) Update(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != state.Playing {
		return
	}

	if !r.emptySince.IsZero() && time.Since(r.emptySince) >= r.grace {
		logger.Log.Infof("room %s grace period expired, marking finished", r.ID)
		r.setStateLocked(state.Finished)
		r.disconnected = make(map[string]*player.Player)
		r.emptySince = time.Time{}
		return
	}

	if len(r.players) == 0 {
		return
	}

	r.tick++

	for _, id := range r.sortedIDsLocked() {
		r.players[id].ProcessInput(dt)
	}

	r.broadcastLocked(r.gameStateLocked())
}

// QueueInput 缓存玩家的最新输入，等待下一次 Update 消费
func (r *Room) QueueInput(playerID string, tick int64, actions []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}
	p.QueueInput(tick, actions)
}

// --- 广播 ---

// Broadcast 把事件发给房间内所有玩家，负载只序列化一次
func (r *Room) Broadcast(event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(event)
}

// BroadcastExcept 把事件发给除 excludeID 之外的所有玩家
func (r *Room) BroadcastExcept(excludeID string, event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.marshalLocked(event)
	if !ok {
		return
	}
	for _, id := range r.sortedIDsLocked() {
		if id != excludeID {
			r.broadcaster.SendToPlayer(id, data)
		}
	}
}

// SendTo 把事件单播给一个玩家
func (r *Room) SendTo(playerID string, event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.marshalLocked(event)
	if !ok {
		return
	}
	r.broadcaster.SendToPlayer(playerID, data)
}

func (r *Room) broadcastLocked(event interface{}) {
	data, ok := r.marshalLocked(event)
	if !ok {
		return
	}
	for _, id := range r.sortedIDsLocked() {
		r.broadcaster.SendToPlayer(id, data)
	}
}

func (r *Room) marshalLocked(event interface{}) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("room %s failed to marshal event: %v", r.ID, err)
		return nil, false
	}
	return data, true
}

func (r *Room) sortedIDsLocked() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) setStateLocked(to state.State) {
	next, err := state.Transition(r.state, to)
	if err != nil {
		logger.Log.Warnf("room %s rejected state change %s -> %s: %v", r.ID, r.state, to, err)
		return
	}
	r.state = next
}

// --- 状态快照 ---

// LobbyState 构造大厅快照，纯读取，无副作用
func (r *Room) LobbyState() models.LobbyStateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]models.PlayerLobbyInfo, 0, len(r.players))
	for _, id := range r.sortedIDsLocked() {
		players = append(players, r.players[id].LobbyInfo())
	}

	return models.LobbyStateEvent{
		Type:       models.EventLobbyState,
		RoomID:     r.ID,
		State:      r.state.String(),
		MaxPlayers: r.MaxPlayers,
		Players:    players,
	}
}

// GameState 构造对局快照，纯读取，无副作用
func (r *Room) GameState() models.GameStateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameStateLocked()
}

func (r *Room) gameStateLocked() models.GameStateEvent {
	players := make([]models.PlayerGameInfo, 0, len(r.players))
	for _, id := range r.sortedIDsLocked() {
		players = append(players, r.players[id].GameInfo())
	}

	return models.GameStateEvent{
		Type:     models.EventGameState,
		Tick:     r.tick,
		TimeLeft: 60.0, // TODO: wire a real round timer once rounds land
		Round:    r.round,
		Players:  players,
		Enemies:  []models.PlayerGameInfo{},
		Items:    []models.ItemInfo{},
	}
}

// --- Tick 驱动 ---

// Start 启动房间的主循环，按固定间隔驱动 Update
func (r *Room) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	r.ticker = time.NewTicker(interval)
	go r.loop(interval.Seconds())
}

func (r *Room) loop(dt float64) {
	for {
		select {
		case <-r.ticker.C:
			r.Update(dt)
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// Close 停止房间主循环，可以重复调用
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}
