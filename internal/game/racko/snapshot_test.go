package racko

import (
	"errors"
	"testing"
)

func TestNewGame(t *testing.T) {
	tests := []struct {
		name        string
		opts        GameOptions
		wantPlayers int
		wantPending int
		wantSeated  bool
	}{
		{
			name:        "two humans",
			opts:        GameOptions{RoomCode: "AAAAAA", MaxPlayers: 2, HostID: "p1", HostName: "Ann"},
			wantPlayers: 1,
			wantPending: 1,
		},
		{
			name:        "four humans",
			opts:        GameOptions{RoomCode: "BBBBBB", MaxPlayers: 4, HostID: "p1", HostName: "Ann"},
			wantPlayers: 1,
			wantPending: 3,
		},
		{
			name:        "against three AI",
			opts:        GameOptions{RoomCode: "CCCCCC", MaxPlayers: 4, UseAI: true, HostID: "p1", HostName: "Ann"},
			wantPlayers: 4,
			wantPending: 0,
			wantSeated:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := NewGame(tt.opts, NewSeededDeckGenerator(3))
			if err != nil {
				t.Fatalf("NewGame: %v", err)
			}

			if len(snap.Players) != tt.wantPlayers {
				t.Errorf("players = %d, want %d", len(snap.Players), tt.wantPlayers)
			}
			if len(snap.PendingRacks) != tt.wantPending {
				t.Errorf("pending racks = %d, want %d", len(snap.PendingRacks), tt.wantPending)
			}
			if snap.Seated() != tt.wantSeated {
				t.Errorf("Seated() = %v, want %v", snap.Seated(), tt.wantSeated)
			}
			if snap.Players[0].ID != "p1" || snap.CurrentTurn != 0 || snap.Round != 1 {
				t.Errorf("host should start round 1, got %+v", snap.Players[0])
			}
			if len(snap.DiscardPile) != 1 {
				t.Errorf("discard pile = %v, want one seed card", snap.DiscardPile)
			}
			if err := snap.CheckPartition(); err != nil {
				t.Errorf("partition: %v", err)
			}

			for i, p := range snap.Players[1:] {
				if tt.opts.UseAI && (!p.IsAI || p.ID != AIPlayerID(i+1)) {
					t.Errorf("player %d = %+v, want AI", i+1, p)
				}
			}
		})
	}
}

func TestNewGameInvalidPlayerCount(t *testing.T) {
	_, err := NewGame(GameOptions{MaxPlayers: 5, HostID: "p1"}, NewSeededDeckGenerator(1))
	if !errors.Is(err, ErrInvalidPlayerCount) {
		t.Fatalf("error = %v, want ErrInvalidPlayerCount", err)
	}
}

func TestSeatPlayer(t *testing.T) {
	snap, err := NewGame(GameOptions{RoomCode: "SEAT01", MaxPlayers: 3, HostID: "p1", HostName: "Ann"}, NewSeededDeckGenerator(2))
	if err != nil {
		t.Fatal(err)
	}
	firstPending := append([]Card(nil), snap.PendingRacks[0]...)

	if err := snap.SeatPlayer("p2", "Bob"); err != nil {
		t.Fatalf("SeatPlayer p2: %v", err)
	}
	if got := snap.Player("p2"); got == nil || got.Rack[0] != firstPending[0] {
		t.Errorf("p2 should receive the first pending rack, got %+v", got)
	}
	if snap.Seated() || snap.IsTurnOf("p1") {
		t.Error("game should still be waiting for a player")
	}

	if err := snap.SeatPlayer("p3", "Cat"); err != nil {
		t.Fatalf("SeatPlayer p3: %v", err)
	}
	if !snap.Seated() || !snap.IsTurnOf("p1") {
		t.Error("host should be able to move once all seats are filled")
	}
	if err := snap.CheckPartition(); err != nil {
		t.Errorf("partition: %v", err)
	}

	if err := snap.SeatPlayer("p4", "Dan"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("SeatPlayer on full room error = %v, want ErrRoomFull", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	snap, _ := NewGame(GameOptions{RoomCode: "CLONE1", MaxPlayers: 2, HostID: "p1"}, NewSeededDeckGenerator(4))
	cp := snap.Clone()

	cp.Players[0].Rack[0] = 0
	cp.PendingRacks[0][0] = 0
	cp.DrawPile[0] = 0
	cp.DiscardPile[0] = 0

	if snap.Players[0].Rack[0] == 0 || snap.PendingRacks[0][0] == 0 ||
		snap.DrawPile[0] == 0 || snap.DiscardPile[0] == 0 {
		t.Fatal("clone shares memory with the original")
	}
}

func TestCheckPartitionDetectsDuplicates(t *testing.T) {
	snap, _ := NewGame(GameOptions{RoomCode: "DUP001", MaxPlayers: 2, HostID: "p1"}, NewSeededDeckGenerator(4))
	snap.DrawPile[0] = snap.DiscardPile[0]

	if err := snap.CheckPartition(); err == nil {
		t.Fatal("expected duplicate card to be reported")
	}
}

func TestNewGameEveryPlayerCount(t *testing.T) {
	gen := NewSeededDeckGenerator(3)

	for players := MinPlayers; players <= MaxPlayers; players++ {
		snap, err := NewGame(GameOptions{RoomCode: "DDDDDD", MaxPlayers: players, UseAI: true, HostID: "p1", HostName: "Ann"}, gen)
		if err != nil {
			t.Fatalf("NewGame(%d players): %v", players, err)
		}
		if err := snap.CheckPartition(); err != nil {
			t.Errorf("NewGame(%d players) partition: %v", players, err)
		}
		if want := snap.DeckSize() - players*RackSize - 1; len(snap.DrawPile) != want {
			t.Errorf("NewGame(%d players) draw pile = %d cards, want %d", players, len(snap.DrawPile), want)
		}
	}
}
