package player

import (
	"reflect"
	"testing"

	"github.com/wfunc/arena/physics"
)

func TestPlayer_Spawn(t *testing.T) {
	p := New("p1", "one", "One")
	p.VX, p.VY = 50, -100

	p.Spawn(80, physics.GroundY)

	if p.X != 80 || p.Y != physics.GroundY {
		t.Errorf("spawn position (%v,%v)", p.X, p.Y)
	}
	if p.VX != 0 || p.VY != 0 {
		t.Error("spawn must reset velocity")
	}
	if !p.OnGround {
		t.Error("spawning on the ground line should set OnGround")
	}

	p.Spawn(80, 100)
	if p.OnGround {
		t.Error("spawning in the air should clear OnGround")
	}
}

func TestPlayer_QueueInput_Overwrites(t *testing.T) {
	p := New("p1", "one", "One")

	p.QueueInput(3, []string{ActionMoveLeft, ActionJump})
	p.QueueInput(4, []string{ActionMoveRight})

	if !reflect.DeepEqual(p.PendingActions, []string{ActionMoveRight}) {
		t.Errorf("queue should overwrite, got %v", p.PendingActions)
	}
	if p.LastInputTick != 4 {
		t.Errorf("expected last input tick 4, got %d", p.LastInputTick)
	}
}

func TestPlayer_ProcessInput_Move(t *testing.T) {
	p := New("p1", "one", "One")
	p.Spawn(400, physics.GroundY)

	p.QueueInput(1, []string{ActionMoveRight})
	p.ProcessInput(0.1)
	if p.X != 400+physics.MoveSpeed*0.1 {
		t.Errorf("expected x %v, got %v", 400+physics.MoveSpeed*0.1, p.X)
	}

	// Input is held intent, the next tick keeps moving without a new message
	p.ProcessInput(0.1)
	if p.X != 400+physics.MoveSpeed*0.2 {
		t.Errorf("held input did not keep moving, x = %v", p.X)
	}

	p.QueueInput(3, nil)
	p.ProcessInput(0.1)
	if p.VX != 0 {
		t.Error("empty input should stop horizontal movement")
	}
}

func TestPlayer_ProcessInput_JumpAndGravity(t *testing.T) {
	p := New("p1", "one", "One")
	p.Spawn(400, physics.GroundY)

	p.QueueInput(1, []string{ActionJump})
	p.ProcessInput(0.1)

	if p.OnGround {
		t.Fatal("jump should leave the ground")
	}
	if p.Y >= physics.GroundY {
		t.Errorf("jump did not move the player up, y = %v", p.Y)
	}

	// Holding jump in the air must not double-jump; gravity pulls back down
	p.QueueInput(2, []string{ActionJump})
	for i := 0; i < 100 && !p.OnGround; i++ {
		p.ProcessInput(0.1)
	}
	if !p.OnGround {
		t.Fatal("player never landed")
	}
	if p.Y != physics.GroundY || p.VY != 0 {
		t.Errorf("landing should clamp to the ground, y=%v vy=%v", p.Y, p.VY)
	}
}

func TestPlayer_ProcessInput_ClampsToMap(t *testing.T) {
	p := New("p1", "one", "One")
	p.Spawn(0, physics.GroundY)

	p.QueueInput(1, []string{ActionMoveLeft})
	p.ProcessInput(0.5)
	if p.X != 0 {
		t.Errorf("left edge clamp failed, x = %v", p.X)
	}

	p.Spawn(physics.MapWidth, physics.GroundY)
	p.QueueInput(2, []string{ActionMoveRight})
	p.ProcessInput(0.5)
	if p.X != physics.MapWidth {
		t.Errorf("right edge clamp failed, x = %v", p.X)
	}
}

func TestPlayer_SnapshotInfo(t *testing.T) {
	p := New("p1", "one", "One")
	p.Ready = true
	p.Spawn(80, physics.GroundY)

	lobby := p.LobbyInfo()
	if lobby.ID != "p1" || lobby.Name != "one" || lobby.DisplayName != "One" || !lobby.Ready {
		t.Errorf("unexpected lobby info %+v", lobby)
	}

	game := p.GameInfo()
	if game.ID != "p1" || game.DisplayName != "One" || game.X != 80 || game.Y != physics.GroundY {
		t.Errorf("unexpected game info %+v", game)
	}
}
