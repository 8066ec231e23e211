// player/player.go
package player

import (
	"github.com/wfunc/arena/models"
	"github.com/wfunc/arena/physics"
)

// 客户端输入动作，每个 Tick 作为持续意图解释，直到被下一次输入覆盖
const (
	ActionMoveLeft  = "move_left"
	ActionMoveRight = "move_right"
	ActionJump      = "jump"
)

// Player 是房间内一个玩家的权威状态，由持有它的 Room 独占访问
type Player struct {
	ID          string
	Name        string
	DisplayName string
	Ready       bool

	X, Y     float64
	VX, VY   float64
	OnGround bool

	PendingActions []string
	LastInputTick  int64
}

func New(id, name, displayName string) *Player {
	return &Player{
		ID:          id,
		Name:        name,
		DisplayName: displayName,
	}
}

// Spawn 将玩家放置到出生点并清空运动状态
func (p *Player) Spawn(x, y float64) {
	p.X = x
	p.Y = y
	p.VX = 0
	p.VY = 0
	p.OnGround = y >= physics.GroundY
}

// QueueInput 覆盖（而非追加）待处理动作列表
func (p *Player) QueueInput(tick int64, actions []string) {
	p.PendingActions = actions
	p.LastInputTick = tick
}

// ProcessInput 消费当前输入意图并推进一帧运动：水平移动、跳跃、重力、边界裁剪。
// 由 Room.Update 每 Tick 调用一次。
func (p *Player) ProcessInput(dt float64) {
	p.VX = 0
	for _, action := range p.PendingActions {
		switch action {
		case ActionMoveLeft:
			p.VX = -physics.MoveSpeed
		case ActionMoveRight:
			p.VX = physics.MoveSpeed
		case ActionJump:
			if p.OnGround {
				p.VY = physics.JumpVelocity
				p.OnGround = false
			}
		}
	}

	p.X += p.VX * dt
	p.VY += physics.Gravity * dt
	p.Y += p.VY * dt

	if p.X < 0 {
		p.X = 0
	}
	if p.X > physics.MapWidth {
		p.X = physics.MapWidth
	}
	if p.Y >= physics.GroundY {
		p.Y = physics.GroundY
		p.VY = 0
		p.OnGround = true
	}
}

// LobbyInfo 返回大厅快照中该玩家的字段
func (p *Player) LobbyInfo() models.PlayerLobbyInfo {
	return models.PlayerLobbyInfo{
		ID:          p.ID,
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Ready:       p.Ready,
	}
}

// GameInfo 返回对局快照中该玩家的字段
func (p *Player) GameInfo() models.PlayerGameInfo {
	return models.PlayerGameInfo{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		X:           p.X,
		Y:           p.Y,
	}
}
