package racko

import (
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// twoPlayerSnapshot 两名真人玩家、轮到 p1 的牌局
func twoPlayerSnapshot() *Snapshot {
	return &Snapshot{
		RoomCode:   "ABC123",
		MaxPlayers: 2,
		Players: []Player{
			{ID: "p1", Name: "Ann", Rack: []Card{2, 3, 4, 5, 6, 7, 8, 9, 1, 35}},
			{ID: "p2", Name: "Bob", Rack: []Card{40, 38, 36, 34, 32, 28, 26, 24, 22, 21}},
		},
		PendingRacks: [][]Card{},
		DrawPile:     []Card{11, 12, 13, 14, 15, 16, 17},
		DiscardPile:  []Card{18, 19, 10},
		Round:        1,
	}
}

func newTestSession(t *testing.T, playerID string, snap *Snapshot, opts ...SessionOption) *Session {
	t.Helper()
	opts = append([]SessionOption{WithDeckGenerator(NewSeededDeckGenerator(5))}, opts...)
	s := NewSession(playerID, opts...)
	s.Load(snap)
	return s
}

func TestDrawFromDrawPile(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())

	snap, err := s.Draw(false)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}

	held, ok := s.Held()
	if !ok || held.Card != 17 || held.FromDiscard {
		t.Fatalf("held = %+v, %v; want card 17 from draw pile", held, ok)
	}
	if len(snap.DrawPile) != 6 {
		t.Errorf("draw pile size = %d, want 6", len(snap.DrawPile))
	}
	if s.Phase() != PhaseHoldingFreeCard {
		t.Errorf("phase = %s, want %s", s.Phase(), PhaseHoldingFreeCard)
	}

	if _, err := s.Draw(false); !errors.Is(err, ErrCardAlreadyHeld) {
		t.Errorf("second Draw error = %v, want ErrCardAlreadyHeld", err)
	}
}

func TestDrawRecyclesDiscardPile(t *testing.T) {
	start := twoPlayerSnapshot()
	start.DrawPile = []Card{}
	start.DiscardPile = []Card{7, 3, 9}
	s := newTestSession(t, "p1", start)

	snap, err := s.Draw(false)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if !reflect.DeepEqual(snap.DiscardPile, []Card{9}) {
		t.Errorf("discard pile = %v, want [9]", snap.DiscardPile)
	}

	held, _ := s.Held()
	got := append([]Card{held.Card}, snap.DrawPile...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if !reflect.DeepEqual(got, []Card{3, 7}) {
		t.Errorf("held card plus draw pile = %v, want permutation of [7 3]", got)
	}
}

func TestRecycleDiscardPileDirect(t *testing.T) {
	snap := &Snapshot{DrawPile: []Card{}, DiscardPile: []Card{7, 3, 9}}
	if err := snap.recycleDiscardPile(NewSeededDeckGenerator(1)); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(snap.DiscardPile, []Card{9}) {
		t.Errorf("discard pile = %v, want [9]", snap.DiscardPile)
	}
	sorted := append([]Card(nil), snap.DrawPile...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if !reflect.DeepEqual(sorted, []Card{3, 7}) {
		t.Errorf("draw pile = %v, want permutation of [7 3]", snap.DrawPile)
	}
}

func TestDrawPileExhausted(t *testing.T) {
	start := twoPlayerSnapshot()
	start.DrawPile = []Card{}
	start.DiscardPile = []Card{5}
	s := newTestSession(t, "p1", start)
	before := s.Snapshot()

	if _, err := s.Draw(false); !errors.Is(err, ErrPileExhausted) {
		t.Fatalf("Draw error = %v, want ErrPileExhausted", err)
	}
	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Error("state changed after exhausted draw")
	}
	if _, ok := s.Held(); ok {
		t.Error("card held after exhausted draw")
	}
}

func TestDrawRejections(t *testing.T) {
	tests := []struct {
		name    string
		player  string
		mutate  func(*Snapshot)
		discard bool
		wantErr error
	}{
		{name: "not my turn", player: "p2", wantErr: ErrNotYourTurn},
		{name: "round over", player: "p1", mutate: func(s *Snapshot) { s.Winner = "p2" }, wantErr: ErrRoundOver},
		{name: "seats not filled", player: "p1", mutate: func(s *Snapshot) {
			s.MaxPlayers = 3
		}, wantErr: ErrNotYourTurn},
		{name: "empty discard pile", player: "p1", discard: true, mutate: func(s *Snapshot) {
			s.DiscardPile = []Card{}
		}, wantErr: ErrEmptyDiscardPile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := twoPlayerSnapshot()
			if tt.mutate != nil {
				tt.mutate(start)
			}
			s := newTestSession(t, tt.player, start)
			before := s.Snapshot()

			_, err := s.Draw(tt.discard)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Draw error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrIllegalMove) {
				t.Errorf("error %v should be an illegal move", err)
			}
			if !reflect.DeepEqual(s.Snapshot(), before) {
				t.Error("state changed after rejected draw")
			}
		})
	}
}

func TestForcedCardCannotBeDiscarded(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())

	if _, err := s.Draw(true); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if s.Phase() != PhaseHoldingForcedCard {
		t.Fatalf("phase = %s, want %s", s.Phase(), PhaseHoldingForcedCard)
	}
	before := s.Snapshot()

	if _, err := s.Discard(); !errors.Is(err, ErrForcedCard) {
		t.Fatalf("Discard error = %v, want ErrForcedCard", err)
	}
	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Error("state changed after rejected discard")
	}
	if held, ok := s.Held(); !ok || held.Card != 10 {
		t.Errorf("held = %+v, %v; want forced card 10 still held", held, ok)
	}
}

func TestPlaceReplacesCard(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())
	if _, err := s.Draw(false); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Place(0)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	if got := snap.Players[0].Rack[0]; got != 17 {
		t.Errorf("rack[0] = %d, want 17", got)
	}
	if top, _ := snap.DiscardTop(); top != 2 {
		t.Errorf("discard top = %d, want replaced card 2", top)
	}
	if snap.CurrentTurn != 1 {
		t.Errorf("current turn = %d, want 1", snap.CurrentTurn)
	}
	if !s.CanUndo() {
		t.Error("undo should be available after place")
	}
}

func TestPlaceRejections(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())

	if _, err := s.Place(0); !errors.Is(err, ErrNoCardHeld) {
		t.Errorf("Place without card error = %v, want ErrNoCardHeld", err)
	}

	if _, err := s.Draw(false); err != nil {
		t.Fatal(err)
	}
	for _, pos := range []int{-1, RackSize} {
		if _, err := s.Place(pos); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("Place(%d) error = %v, want ErrInvalidPosition", pos, err)
		}
	}
	if _, ok := s.Held(); !ok {
		t.Error("held card lost after rejected place")
	}
}

func TestWinningPlace(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())

	// 弃牌堆顶为 10，放入 8 号位后牌架升序
	if _, err := s.Draw(true); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Place(8)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	if snap.Winner != "p1" {
		t.Fatalf("winner = %q, want p1", snap.Winner)
	}
	if snap.Players[0].Score != 1 {
		t.Errorf("score = %d, want 1", snap.Players[0].Score)
	}
	if snap.CurrentTurn != 1 {
		t.Errorf("turn should still advance after a win, got %d", snap.CurrentTurn)
	}
	if s.CanUndo() {
		t.Error("winning place must not be undoable")
	}
	if s.Phase() != PhaseRoundOver {
		t.Errorf("phase = %s, want %s", s.Phase(), PhaseRoundOver)
	}

	other := newTestSession(t, "p2", snap)
	if _, err := other.Draw(false); !errors.Is(err, ErrRoundOver) {
		t.Errorf("draw after win error = %v, want ErrRoundOver", err)
	}
}

func TestUndoRestoresExactState(t *testing.T) {
	tests := []struct {
		name    string
		discard bool
		act     func(*Session) (*Snapshot, error)
	}{
		{name: "place", act: func(s *Session) (*Snapshot, error) { return s.Place(3) }},
		{name: "discard", act: func(s *Session) (*Snapshot, error) { return s.Discard() }},
		{name: "forced place", discard: true, act: func(s *Session) (*Snapshot, error) { return s.Place(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, "p1", twoPlayerSnapshot())
			if _, err := s.Draw(tt.discard); err != nil {
				t.Fatal(err)
			}
			before := s.Snapshot()
			heldBefore, _ := s.Held()

			if _, err := tt.act(s); err != nil {
				t.Fatalf("move: %v", err)
			}

			restored, err := s.Undo()
			if err != nil {
				t.Fatalf("Undo: %v", err)
			}
			if !reflect.DeepEqual(restored, before) {
				t.Errorf("restored snapshot = %+v, want %+v", restored, before)
			}
			if held, ok := s.Held(); !ok || held != heldBefore {
				t.Errorf("held after undo = %+v, %v; want %+v", held, ok, heldBefore)
			}
			if s.CanUndo() {
				t.Error("undo should be consumed")
			}
			if _, err := s.Undo(); !errors.Is(err, ErrNoUndo) {
				t.Errorf("second Undo error = %v, want ErrNoUndo", err)
			}
		})
	}
}

func TestUndoExpires(t *testing.T) {
	clock := newClock()
	s := newTestSession(t, "p1", twoPlayerSnapshot(), WithClock(clock.Now), WithUndoWindow(3*time.Second))

	if _, err := s.Draw(false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Discard(); err != nil {
		t.Fatal(err)
	}

	clock.Advance(3 * time.Second)
	if !s.CanUndo() {
		t.Fatal("undo should still be available at the window boundary")
	}

	clock.Advance(time.Millisecond)
	if s.CanUndo() {
		t.Fatal("undo should be unavailable after the window")
	}
	after := s.Snapshot()
	if _, err := s.Undo(); !errors.Is(err, ErrUndoExpired) {
		t.Fatalf("Undo error = %v, want ErrUndoExpired", err)
	}
	if !reflect.DeepEqual(s.Snapshot(), after) {
		t.Error("expired undo changed state")
	}
}

func TestExpireUndoMatchesID(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())
	if _, err := s.Draw(false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Discard(); err != nil {
		t.Fatal(err)
	}

	id, ok := s.PendingMoveID()
	if !ok {
		t.Fatal("expected pending move")
	}
	if s.ExpireUndo(id + 1) {
		t.Error("ExpireUndo with a stale id should do nothing")
	}
	if !s.ExpireUndo(id) {
		t.Error("ExpireUndo with current id should clear the buffer")
	}
	if s.CanUndo() {
		t.Error("undo still available after expiry")
	}
}

func TestTurnOrderWrapsAround(t *testing.T) {
	snap := &Snapshot{
		RoomCode:   "TURN01",
		MaxPlayers: 3,
		Players: []Player{
			{ID: "a", Rack: []Card{50, 49, 48, 47, 46, 45, 44, 43, 42, 41}},
			{ID: "b", Rack: []Card{40, 39, 38, 37, 36, 35, 34, 33, 32, 31}},
			{ID: "c", Rack: []Card{30, 29, 28, 27, 26, 25, 24, 23, 22, 21}},
		},
		PendingRacks: [][]Card{},
		DrawPile:     []Card{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18},
		DiscardPile:  []Card{19, 20},
		Round:        1,
	}

	wantTurns := []int{1, 2, 0, 1}
	ids := []string{"a", "b", "c"}
	for step, want := range wantTurns {
		s := newTestSession(t, ids[snap.CurrentTurn], snap)
		if _, err := s.Draw(false); err != nil {
			t.Fatalf("step %d Draw: %v", step, err)
		}

		var err error
		if step%2 == 0 {
			snap, err = s.Discard()
		} else {
			snap, err = s.Place(0)
		}
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if snap.CurrentTurn != want {
			t.Fatalf("step %d: turn = %d, want %d", step, snap.CurrentTurn, want)
		}
	}
}

func TestNewRoundKeepsScores(t *testing.T) {
	snap, err := NewGame(GameOptions{
		RoomCode: "ROUND1", MaxPlayers: 3, HostID: "p1", HostName: "Ann",
	}, NewSeededDeckGenerator(9))
	if err != nil {
		t.Fatal(err)
	}
	if err := snap.SeatPlayer("p2", "Bob"); err != nil {
		t.Fatal(err)
	}
	snap.Players[0].Score = 2
	snap.Players[1].Score = 1
	snap.Winner = "p1"
	snap.CurrentTurn = 1

	s := newTestSession(t, "p1", snap)
	next, err := s.NewRound()
	if err != nil {
		t.Fatalf("NewRound: %v", err)
	}

	if next.Winner != "" {
		t.Errorf("winner = %q, want empty", next.Winner)
	}
	if next.CurrentTurn != 0 {
		t.Errorf("current turn = %d, want 0", next.CurrentTurn)
	}
	if next.Round != 2 {
		t.Errorf("round = %d, want 2", next.Round)
	}
	if next.Players[0].Score != 2 || next.Players[1].Score != 1 {
		t.Errorf("scores = %d, %d; want 2, 1", next.Players[0].Score, next.Players[1].Score)
	}
	if next.Players[0].ID != "p1" || next.Players[1].ID != "p2" {
		t.Errorf("player order changed: %v", next.Players)
	}
	if len(next.PendingRacks) != 1 {
		t.Errorf("pending racks = %d, want 1 for the empty seat", len(next.PendingRacks))
	}
	if err := next.CheckPartition(); err != nil {
		t.Errorf("partition broken: %v", err)
	}
	if len(next.DiscardPile) != 1 {
		t.Errorf("discard pile = %v, want a single seed card", next.DiscardPile)
	}
}

func TestReceiveClearsHeldWhenTurnMovesOn(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())
	if _, err := s.Draw(false); err != nil {
		t.Fatal(err)
	}

	remote := twoPlayerSnapshot()
	remote.CurrentTurn = 1
	remote.Seq = 10

	if !s.Receive(remote) {
		t.Fatal("Receive should report a change")
	}
	if _, ok := s.Held(); ok {
		t.Error("held card should be dropped when it is no longer my turn")
	}
	if s.IsMyTurn() {
		t.Error("IsMyTurn should be false")
	}
	if !reflect.DeepEqual(s.Snapshot(), remote) {
		t.Error("remote snapshot should replace local state")
	}
}

func TestReceiveSameSnapshotIsNoop(t *testing.T) {
	start := twoPlayerSnapshot()
	s := newTestSession(t, "p1", start)
	if _, err := s.Draw(false); err != nil {
		t.Fatal(err)
	}

	if s.Receive(s.Snapshot()) {
		t.Error("receiving identical state should report no change")
	}
	if _, ok := s.Held(); !ok {
		t.Error("held card should survive an identical snapshot")
	}
}

func TestReturnedSnapshotsAreCopies(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())

	snap := s.Snapshot()
	snap.Players[0].Rack[0] = 99
	snap.DrawPile = snap.DrawPile[:0]

	again := s.Snapshot()
	if again.Players[0].Rack[0] != 2 || len(again.DrawPile) != 7 {
		t.Error("mutating a returned snapshot changed session state")
	}
}

func TestStateIsConsistent(t *testing.T) {
	s := newTestSession(t, "p1", twoPlayerSnapshot())
	if _, err := s.Draw(true); err != nil {
		t.Fatal(err)
	}

	st := s.State()
	if st.Held == nil || st.Held.Card != 10 || !st.Held.FromDiscard {
		t.Errorf("held = %+v, want forced 10", st.Held)
	}
	if st.Phase != PhaseHoldingForcedCard || !st.IsMyTurn || st.CanUndo {
		t.Errorf("state = %+v", st)
	}
	if st.TurnKey != st.Snapshot.TurnKey() || st.TurnKey != s.TurnKey() {
		t.Errorf("turn key = %+v, snapshot key = %+v", st.TurnKey, st.Snapshot.TurnKey())
	}

	st.Held.Card = 99
	if held, _ := s.Held(); held.Card != 10 {
		t.Error("State must return copies")
	}
}
