package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/arena/broadcast"
	"github.com/wfunc/arena/config"
	"github.com/wfunc/arena/logger"
	"github.com/wfunc/arena/models"
	"github.com/wfunc/arena/monitor"
	"github.com/wfunc/arena/network"
	"github.com/wfunc/arena/persistence"
	"github.com/wfunc/arena/player"
	"github.com/wfunc/arena/room"
	arenarpc "github.com/wfunc/arena/rpc"
	"github.com/wfunc/arena/services"
	"github.com/wfunc/arena/session"
	"github.com/wfunc/arena/timer"
)

// GameServer 是外层调度器：接入 WebSocket 连接，把客户端消息路由到
// 对应房间的操作上，并负责回收满足清理条件的房间。
type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	matchService   *services.MatchService
	broadcaster    room.Broadcaster
	rpcServer      *arenarpc.Server
	timers         *timer.Manager
	mon            *monitor.Monitor

	rosterMutex sync.Mutex
	rosters     map[string]map[string]models.MatchPlayer // roomID -> playerID -> info

	shutdownChan chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		roomManager:    room.NewManager(cfg.Game.GracePeriod(), cfg.Game.TickInterval()),
		sessionManager: session.NewManager(),
		matchService:   services.NewMatchService(db),
		timers:         timer.NewManager(),
		mon:            monitor.NewMonitor("arena"),
		rosters:        make(map[string]map[string]models.MatchPlayer),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	rpcServer, err := arenarpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(arenarpc.NewAdminService(s.matchService, s.roomManager))

	// 周期性维护：回收可清理的房间、落库房间快照
	s.timers.Schedule(5*time.Second, 5*time.Second, s.reapRooms)
	s.timers.Schedule(30*time.Second, 30*time.Second, s.snapshotRooms)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.mon.StartServer(s.cfg.Server.MetricsAddress)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(30 * time.Second)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.mon.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		s.mon.DecOnlinePlayers()
		sess.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.mon.IncMessagesReceived()
	sess.Touch()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// 入站活跃时间已在上面刷新，心跳无需其他处理
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeSetReady:
		s.handleSetReady(sess, packet)
	case network.MsgTypeChat:
		s.handleChat(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess)
	case network.MsgTypeInput:
		s.handleInput(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}

	s.mon.ObserveMessageLatency(time.Since(start))
}

type joinRequest struct {
	RoomID      string `json:"room_id"`
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type inputRequest struct {
	Tick    int64    `json:"tick"`
	Actions []string `json:"actions"`
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	roomID := uuid.New().String()
	r := s.roomManager.CreateRoom(roomID, s.cfg.Game.MaxPlayers, s.broadcaster)
	s.mon.SetActiveRooms(s.roomManager.Count())

	logger.Log.Infof("Session %s created room %s", sess.GetID(), roomID)

	s.joinRoom(sess, r, &req)

	resp, _ := json.Marshal(map[string]string{"room_id": roomID})
	sess.Send(network.MsgTypeCreateRoom, resp)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		s.sendError(sess, "room not found")
		return
	}

	s.joinRoom(sess, r, &req)
}

// joinRoom 构造玩家记录并尝试加入（或重连）房间
func (s *GameServer) joinRoom(sess *session.Session, r *room.Room, req *joinRequest) {
	if req.PlayerID == "" {
		req.PlayerID = uuid.New().String()
	}
	if req.Name == "" {
		req.Name = req.PlayerID
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Name
	}

	p := player.New(req.PlayerID, req.Name, req.DisplayName)
	if !r.AddPlayer(p) {
		s.sendError(sess, "cannot join room")
		return
	}

	sess.Bind(req.PlayerID, r.ID)
	s.addToRoster(r.ID, req)

	if err := s.matchService.TouchProfile(req.PlayerID, req.Name); err != nil {
		logger.Log.Warnf("failed to touch profile for %s: %v", req.PlayerID, err)
	}

	// 让房间里的所有人看到最新的大厅状态
	r.Broadcast(r.LobbyState())
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	pid, rid := sess.Binding()
	if rid == "" {
		return
	}

	if r, exists := s.roomManager.GetRoom(rid); exists {
		r.RemovePlayer(pid)
		r.Broadcast(r.LobbyState())
	}
	sess.Unbind()
}

func (s *GameServer) handleSetReady(sess *session.Session, packet *network.Packet) {
	var req readyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if r, ok := s.roomOf(sess); ok {
		pid, _ := sess.Binding()
		r.SetPlayerReady(pid, req.Ready)
	}
}

func (s *GameServer) handleChat(sess *session.Session, packet *network.Packet) {
	var req chatRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if r, ok := s.roomOf(sess); ok {
		pid, _ := sess.Binding()
		r.HandleChat(pid, req.Message)
	}
}

func (s *GameServer) handleStartGame(sess *session.Session) {
	if r, ok := s.roomOf(sess); ok {
		r.StartGame()
	}
}

func (s *GameServer) handleInput(sess *session.Session, packet *network.Packet) {
	var req inputRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	if r, ok := s.roomOf(sess); ok {
		pid, _ := sess.Binding()
		r.QueueInput(pid, req.Tick, req.Actions)
	}
}

// handleDisconnect 在连接断开时把玩家移出房间；对局中的玩家会进入
// 断线名单，可在宽限期内重连。
func (s *GameServer) handleDisconnect(sess *session.Session) {
	pid, rid := sess.Binding()
	if rid == "" {
		return
	}

	if r, exists := s.roomManager.GetRoom(rid); exists {
		r.RemovePlayer(pid)
	}
}

func (s *GameServer) roomOf(sess *session.Session) (*room.Room, bool) {
	_, rid := sess.Binding()
	if rid == "" {
		return nil, false
	}
	return s.roomManager.GetRoom(rid)
}

func (s *GameServer) sendError(sess *session.Session, reason string) {
	data, _ := json.Marshal(map[string]string{"error": reason})
	sess.Send(network.MsgTypeError, data)
}

func (s *GameServer) addToRoster(roomID string, req *joinRequest) {
	s.rosterMutex.Lock()
	defer s.rosterMutex.Unlock()

	roster, ok := s.rosters[roomID]
	if !ok {
		roster = make(map[string]models.MatchPlayer)
		s.rosters[roomID] = roster
	}
	roster[req.PlayerID] = models.MatchPlayer{
		PlayerID:    req.PlayerID,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Outcome:     "abandoned",
	}
}

func (s *GameServer) takeRoster(roomID string) []models.MatchPlayer {
	s.rosterMutex.Lock()
	defer s.rosterMutex.Unlock()

	roster := s.rosters[roomID]
	delete(s.rosters, roomID)

	players := make([]models.MatchPlayer, 0, len(roster))
	for _, mp := range roster {
		players = append(players, mp)
	}
	return players
}

// reapRooms 回收所有满足清理条件的房间并存档
func (s *GameServer) reapRooms() {
	reaped := s.roomManager.ReapExpired()
	if len(reaped) == 0 {
		return
	}

	for _, r := range reaped {
		ticks := r.Tick()
		s.mon.AddTicks(ticks)
		s.mon.IncMatchesFinished()

		record := &models.MatchRecord{
			RoomID:    r.ID,
			Round:     1,
			Ticks:     ticks,
			Players:   s.takeRoster(r.ID),
			CreatedAt: time.Now(),
		}
		if err := s.matchService.RecordMatch(record); err != nil {
			logger.Log.Errorf("failed to record match for room %s: %v", r.ID, err)
		}

		logger.Log.Infof("room %s reaped after %d ticks", r.ID, ticks)
	}

	s.mon.SetActiveRooms(s.roomManager.Count())
}

// snapshotRooms 把每个活跃房间的大厅视图落库
func (s *GameServer) snapshotRooms() {
	for _, r := range s.roomManager.Rooms() {
		lobby := r.LobbyState()

		players := make(map[string]interface{}, len(lobby.Players))
		for _, info := range lobby.Players {
			players[info.ID] = map[string]interface{}{
				"name":         info.Name,
				"display_name": info.DisplayName,
				"ready":        info.Ready,
			}
		}

		snapshot := &models.RoomSnapshot{
			RoomID:    r.ID,
			State:     lobby.State,
			Players:   players,
			UpdatedAt: time.Now(),
		}
		if err := s.matchService.SnapshotRoom(snapshot); err != nil {
			logger.Log.Debugf("failed to snapshot room %s: %v", r.ID, err)
		}
	}
}
