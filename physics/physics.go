// physics/physics.go
package physics

// 地图尺寸，随 game_start 一起下发给客户端
const (
	MapWidth  = 800.0
	MapHeight = 600.0
	GroundY   = 520.0
)

// 移动参数（单位/秒）
const (
	MoveSpeed    = 200.0
	JumpVelocity = -420.0
	Gravity      = 900.0
)

// SpawnPositions 是固定的4个出生点，按轮询游标依次分配
var SpawnPositions = [4][2]float64{
	{80, GroundY},
	{720, GroundY},
	{240, GroundY},
	{560, GroundY},
}
