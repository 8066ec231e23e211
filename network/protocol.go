package network

const (
	MsgTypeHeartbeat  = 1
	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeCreateRoom = 103
	MsgTypeSetReady   = 104
	MsgTypeChat       = 105
	MsgTypeStartGame  = 106
	MsgTypeInput      = 201
	MsgTypeRoomEvent  = 301
	MsgTypeError      = 401
)
