package state

import (
	"errors"
	"testing"
)

func TestState_String(t *testing.T) {
	cases := []struct {
		s    State
		want string
	}{
		{Waiting, "waiting"},
		{Playing, "playing"},
		{Finished, "finished"},
		{State(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.s.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", c.s, got, c.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]State{
		{Waiting, Playing},
		{Waiting, Finished},
		{Playing, Finished},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]State{
		{Playing, Waiting},
		{Finished, Waiting},
		{Finished, Playing},
		{Waiting, Waiting},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be denied", pair[0], pair[1])
		}
	}
}

func TestTransition(t *testing.T) {
	next, err := Transition(Waiting, Playing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != Playing {
		t.Errorf("expected playing, got %s", next)
	}

	if _, err := Transition(Finished, Playing); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Errorf("expected ErrTransitionNotAllowed, got %v", err)
	}
}
