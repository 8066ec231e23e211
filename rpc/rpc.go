package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/arena/logger"
	"github.com/wfunc/arena/room"
	"github.com/wfunc/arena/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc.
type AdminService struct {
	matchService *services.MatchService
	roomManager  *room.Manager
}

// NewAdminService creates a new AdminService.
func NewAdminService(ms *services.MatchService, rm *room.Manager) *AdminService {
	return &AdminService{matchService: ms, roomManager: rm}
}

type GetPlayerArgs struct {
	PlayerID string
}

type GetPlayerReply struct {
	Data map[string]interface{}
}

// GetPlayerWithStats returns a player's profile and match statistics.
func (as *AdminService) GetPlayerWithStats(args *GetPlayerArgs, reply *GetPlayerReply) error {
	data, err := as.matchService.GetPlayerWithStats(args.PlayerID)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

type ListRoomsArgs struct{}

type RoomSummary struct {
	ID         string
	State      string
	Players    int
	MaxPlayers int
	Tick       int64
}

type ListRoomsReply struct {
	Rooms []RoomSummary
}

// ListRooms returns a summary of every live room.
func (as *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, r := range as.roomManager.Rooms() {
		reply.Rooms = append(reply.Rooms, RoomSummary{
			ID:         r.ID,
			State:      r.State().String(),
			Players:    r.PlayerCount(),
			MaxPlayers: r.MaxPlayers,
			Tick:       r.Tick(),
		})
	}
	return nil
}
