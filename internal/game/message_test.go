package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
)

func TestStatusMessage(t *testing.T) {
	players := []racko.Player{{ID: "p1", Name: "Ann"}, {ID: "p2", Name: "Bob"}}

	tests := []struct {
		name   string
		snap   *racko.Snapshot
		player string
		want   string
	}{
		{"nil snapshot", nil, "p1", ""},
		{"waiting", &racko.Snapshot{MaxPlayers: 4, Players: players[:1]}, "p1", "Waiting for 3 more..."},
		{"my turn", &racko.Snapshot{MaxPlayers: 2, Players: players}, "p1", MessageYourTurn},
		{"their turn", &racko.Snapshot{MaxPlayers: 2, Players: players}, "p2", "Ann's turn..."},
		{"i won", &racko.Snapshot{MaxPlayers: 2, Players: players, Winner: "p2"}, "p2", MessageYouWin},
		{"they won", &racko.Snapshot{MaxPlayers: 2, Players: players, Winner: "p2"}, "p1", "Bob wins!"},
		{"ai seats count as seated", &racko.Snapshot{MaxPlayers: 3, UseAI: true, Players: players, CurrentTurn: 1}, "p1", "Bob's turn..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusMessage(tt.snap, tt.player))
		})
	}
}

func TestBuildViewWithoutSnapshot(t *testing.T) {
	view := BuildView(racko.NewSession("p1"), "hello")

	assert.Equal(t, "p1", view.PlayerID)
	assert.Equal(t, "hello", view.Message)
	assert.Equal(t, racko.PhaseWaiting, view.Phase)
	assert.Nil(t, view.Players)
	assert.Nil(t, view.DiscardTop)
}

func TestManagerByRoomAndRemove(t *testing.T) {
	m := NewGameManager(time.Hour, time.Hour)
	defer m.Shutdown(context.Background())

	a := m.Add(NewGame("ROOM01", "p1", racko.NewSession("p1")))
	assert.Same(t, a, m.Add(NewGame("ROOM01", "p1", racko.NewSession("p1"))), "existing participant is kept")
	m.Add(NewGame("ROOM01", "p2", racko.NewSession("p2")))
	m.Add(NewGame("ROOM02", "p3", racko.NewSession("p3")))

	assert.Len(t, m.ByRoom("ROOM01"), 2)
	assert.Equal(t, 3, m.Count())

	ch, _ := a.Watch()
	m.Remove("ROOM01", "p1")
	_, ok := <-ch
	assert.False(t, ok, "watchers closed on removal")
	assert.Len(t, m.ByRoom("ROOM01"), 1)
}
