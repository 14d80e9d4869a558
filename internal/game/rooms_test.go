package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestCoordinator(td testDeps) *Coordinator {
	return NewCoordinator(td.deps, time.Hour)
}

func TestCoordinator_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creator is seated and room waits", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		c := newTestCoordinator(td)

		view, err := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "host"})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if view.Status != RoomWaiting {
			t.Errorf("status = %s, want waiting", view.Status)
		}
		if len(view.Players) != 1 || view.Players[0].UserID != "host" {
			t.Errorf("expected the creator seated, got %+v", view.Players)
		}
		// No stake moves until the room starts.
		if td.ledger.balance("host") != 500 {
			t.Errorf("balance touched at creation: %.2f", td.ledger.balance("host"))
		}
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		c := newTestCoordinator(td)

		cases := []CreateRoomRequest{
			{GameType: "roulette", Bet: 50, MaxPlayers: 4, UserID: "host"},
			{GameType: "crash", Bet: -1, MaxPlayers: 4, UserID: "host"},
			{GameType: "crash", Bet: 50, MaxPlayers: 0, UserID: "host"},
			{GameType: "crash", Bet: 50, MaxPlayers: MAX_ROOM_PLAYERS + 1, UserID: "host"},
			{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: ""},
			{GameType: "mines", Bet: 50, MaxPlayers: 4, UserID: "host", MineCount: 25},
		}
		for _, req := range cases {
			if _, err := c.Create(ctx, req); !errors.Is(err, ErrValidation) {
				t.Errorf("Create(%+v): got %v, want validation error", req, err)
			}
		}
	})

	t.Run("rejects a creator who cannot cover the bet", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("poor", 10)
		c := newTestCoordinator(td)

		_, err := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "poor"})
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("got %v, want insufficient funds", err)
		}
	})
}

func TestCoordinator_Join(t *testing.T) {
	ctx := context.Background()

	setup := func(maxPlayers int) (*Coordinator, testDeps, string) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		c := newTestCoordinator(td)
		view, err := c.Create(ctx, CreateRoomRequest{GameType: "dice", Bet: 50, MaxPlayers: maxPlayers, UserID: "host"})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		return c, td, view.ID
	}

	t.Run("seats joiners in order", func(t *testing.T) {
		c, td, roomID := setup(3)
		td.ledger.set("guest", 500)

		view, err := c.Join(ctx, roomID, "guest")
		if err != nil {
			t.Fatalf("Join() error: %v", err)
		}
		if len(view.Players) != 2 || view.Players[1].UserID != "guest" {
			t.Errorf("expected guest seated second, got %+v", view.Players)
		}
	})

	t.Run("double join rejected", func(t *testing.T) {
		c, td, roomID := setup(3)
		td.ledger.set("guest", 500)

		if _, err := c.Join(ctx, roomID, "guest"); err != nil {
			t.Fatalf("first Join() error: %v", err)
		}
		if _, err := c.Join(ctx, roomID, "guest"); !errors.Is(err, ErrValidation) {
			t.Errorf("second join: got %v, want validation error", err)
		}
	})

	t.Run("full room rejected", func(t *testing.T) {
		c, td, roomID := setup(2)
		td.ledger.set("guest1", 500)
		td.ledger.set("guest2", 500)

		if _, err := c.Join(ctx, roomID, "guest1"); err != nil {
			t.Fatalf("Join() error: %v", err)
		}
		if _, err := c.Join(ctx, roomID, "guest2"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("join past capacity: got %v, want invalid state", err)
		}
	})

	t.Run("under-funded joiner rejected", func(t *testing.T) {
		c, td, roomID := setup(3)
		td.ledger.set("broke", 5)

		if _, err := c.Join(ctx, roomID, "broke"); !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("got %v, want insufficient funds", err)
		}
	})

	t.Run("unknown room rejected", func(t *testing.T) {
		c, _, _ := setup(3)
		if _, err := c.Join(ctx, "missing", "guest"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want not found", err)
		}
	})
}

func TestCoordinator_Leave(t *testing.T) {
	ctx := context.Background()
	td := newTestDeps()
	td.ledger.set("host", 500)
	td.ledger.set("guest", 500)
	c := newTestCoordinator(td)

	view, err := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "host"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	roomID := view.ID

	if _, err := c.Join(ctx, roomID, "guest"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if err := c.Leave(ctx, roomID, "guest"); err != nil {
		t.Fatalf("Leave() error: %v", err)
	}
	if err := c.Leave(ctx, roomID, "guest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second leave: got %v, want not found", err)
	}

	// Creator leaving an empty room cancels and reclaims it.
	if err := c.Leave(ctx, roomID, "host"); err != nil {
		t.Fatalf("creator Leave() error: %v", err)
	}
	if _, err := c.Get(roomID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancelled room still resolvable: %v", err)
	}
}

func TestCoordinator_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts every seated player's stake", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		td.ledger.set("guest", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "host"})
		c.Join(ctx, view.ID, "guest")

		started, err := c.Start(ctx, view.ID, "host")
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		if started.Status != RoomPlaying {
			t.Errorf("status = %s, want playing", started.Status)
		}
		if started.Commitment == "" {
			t.Error("expected the round commitment published at start")
		}
		if started.Disclosure != nil {
			t.Error("seeds must stay hidden while the room plays")
		}
		if td.ledger.balance("host") != 450 || td.ledger.balance("guest") != 450 {
			t.Errorf("stakes not deducted: host %.2f, guest %.2f",
				td.ledger.balance("host"), td.ledger.balance("guest"))
		}
	})

	t.Run("only the creator may start", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		td.ledger.set("guest", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "host"})
		c.Join(ctx, view.ID, "guest")

		if _, err := c.Start(ctx, view.ID, "guest"); !errors.Is(err, ErrValidation) {
			t.Errorf("got %v, want validation error", err)
		}
	})

	t.Run("players who lost their funding are skipped", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		td.ledger.set("guest", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "host"})
		c.Join(ctx, view.ID, "guest")

		// The guest's balance drains between join and start.
		td.ledger.set("guest", 10)

		started, err := c.Start(ctx, view.ID, "host")
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}

		var hostSeat, guestSeat *Seat
		for i := range started.Players {
			switch started.Players[i].UserID {
			case "host":
				hostSeat = &started.Players[i]
			case "guest":
				guestSeat = &started.Players[i]
			}
		}
		if hostSeat == nil || !hostSeat.Staked {
			t.Error("host should be staked")
		}
		if guestSeat == nil || guestSeat.Staked {
			t.Error("under-funded guest should be skipped, not staked")
		}
		if td.ledger.balance("guest") != 10 {
			t.Errorf("skipped player's balance touched: %.2f", td.ledger.balance("guest"))
		}
	})

	t.Run("second start rejected", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "dice", Bet: 50, MaxPlayers: 4, UserID: "host"})
		if _, err := c.Start(ctx, view.ID, "host"); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		if _, err := c.Start(ctx, view.ID, "host"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("got %v, want invalid state", err)
		}
	})
}

func TestCoordinator_SubmitAction(t *testing.T) {
	ctx := context.Background()
	td := newTestDeps()
	td.ledger.set("host", 500)
	td.ledger.set("guest", 500)
	c := newTestCoordinator(td)

	view, _ := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 50, MaxPlayers: 4, UserID: "host"})
	roomID := view.ID
	c.Join(ctx, roomID, "guest")

	// Actions before the round starts are rejected.
	if err := c.SubmitAction(ctx, roomID, "host", PlayerAction{Cashout: 1.5}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("action while waiting: got %v, want invalid state", err)
	}

	if _, err := c.Start(ctx, roomID, "host"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := c.SubmitAction(ctx, roomID, "host", PlayerAction{Cashout: 1.5}); err != nil {
		t.Fatalf("SubmitAction() error: %v", err)
	}

	// Resubmitting replaces the earlier action.
	if err := c.SubmitAction(ctx, roomID, "host", PlayerAction{Cashout: 2.5}); err != nil {
		t.Fatalf("resubmit error: %v", err)
	}

	// Outsiders have no say.
	if err := c.SubmitAction(ctx, roomID, "mallory", PlayerAction{Cashout: 1.1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("outsider action: got %v, want not found", err)
	}
}

func TestCoordinator_Finish(t *testing.T) {
	ctx := context.Background()

	t.Run("settles staked seats against the shared round", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		td.ledger.set("guest", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 100, MaxPlayers: 4, UserID: "host"})
		roomID := view.ID
		c.Join(ctx, roomID, "guest")
		c.Start(ctx, roomID, "host")

		// The host cashes out at the floor, guaranteed to be at or below the
		// crash point. The guest never acts.
		if err := c.SubmitAction(ctx, roomID, "host", PlayerAction{Cashout: 1.0}); err != nil {
			t.Fatalf("SubmitAction() error: %v", err)
		}

		finished, err := c.Finish(ctx, roomID, "host")
		if err != nil {
			t.Fatalf("Finish() error: %v", err)
		}
		if finished.Status != RoomFinished {
			t.Errorf("status = %s, want finished", finished.Status)
		}
		if finished.Disclosure == nil || finished.Disclosure.ServerSeed == "" {
			t.Error("expected the seeds disclosed at finish")
		}

		// Host: 500 - 100 + 100*1.0 = 500. Guest acted never: stake stays gone.
		if td.ledger.balance("host") != 500 {
			t.Errorf("host balance = %.2f, want 500", td.ledger.balance("host"))
		}
		if td.ledger.balance("guest") != 400 {
			t.Errorf("guest balance = %.2f, want 400 (no action, no payout)", td.ledger.balance("guest"))
		}
	})

	t.Run("failed credit keeps the room retryable without double pay", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		td.ledger.set("guest", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 100, MaxPlayers: 4, UserID: "host"})
		roomID := view.ID
		c.Join(ctx, roomID, "guest")
		c.Start(ctx, roomID, "host")

		// Both cash out at the floor, so both seats win their stake back.
		if err := c.SubmitAction(ctx, roomID, "host", PlayerAction{Cashout: 1.0}); err != nil {
			t.Fatalf("SubmitAction() error: %v", err)
		}
		if err := c.SubmitAction(ctx, roomID, "guest", PlayerAction{Cashout: 1.0}); err != nil {
			t.Fatalf("SubmitAction() error: %v", err)
		}

		// The first payout credit fails; the room must stay open for a retry.
		td.ledger.failDeposit = true
		if _, err := c.Finish(ctx, roomID, "host"); err == nil {
			t.Fatal("expected an error while a seat is unpaid")
		}
		got, err := c.Get(roomID)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got.Status != RoomPlaying {
			t.Errorf("status after failed finish = %s, want playing", got.Status)
		}

		// The retry pays the remaining seat and never re-pays the settled one.
		finished, err := c.Finish(ctx, roomID, "host")
		if err != nil {
			t.Fatalf("retried Finish() error: %v", err)
		}
		if finished.Status != RoomFinished {
			t.Errorf("status = %s, want finished", finished.Status)
		}
		if td.ledger.balance("host") != 500 {
			t.Errorf("host balance = %.2f, want 500", td.ledger.balance("host"))
		}
		if td.ledger.balance("guest") != 500 {
			t.Errorf("guest balance = %.2f, want 500", td.ledger.balance("guest"))
		}
	})

	t.Run("finishing twice is rejected", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "dice", Bet: 50, MaxPlayers: 2, UserID: "host"})
		c.Start(ctx, view.ID, "host")
		c.SubmitAction(ctx, view.ID, "host", PlayerAction{Target: 50, Over: true})

		if _, err := c.Finish(ctx, view.ID, "host"); err != nil {
			t.Fatalf("Finish() error: %v", err)
		}
		if _, err := c.Finish(ctx, view.ID, "host"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("second finish: got %v, want invalid state", err)
		}
	})

	t.Run("empty requester stands for the timeout policy", func(t *testing.T) {
		td := newTestDeps()
		td.ledger.set("host", 500)
		c := newTestCoordinator(td)

		view, _ := c.Create(ctx, CreateRoomRequest{GameType: "dice", Bet: 50, MaxPlayers: 2, UserID: "host"})
		c.Start(ctx, view.ID, "host")

		if _, err := c.Finish(ctx, view.ID, ""); err != nil {
			t.Fatalf("timeout Finish() error: %v", err)
		}
	})
}

func TestCoordinator_ConcurrentJoins(t *testing.T) {
	ctx := context.Background()
	td := newTestDeps()
	td.ledger.set("host", 500)
	c := newTestCoordinator(td)

	view, err := c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 10, MaxPlayers: 5, UserID: "host"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		userID := string(rune('a'+i%26)) + "-joiner"
		td.ledger.set(userID, 500)
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := string(rune('a'+i%26)) + "-joiner"
			c.Join(ctx, view.ID, userID)
		}(i)
	}
	wg.Wait()

	got, err := c.Get(view.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(got.Players) > 5 {
		t.Errorf("room overfilled under concurrency: %d seats", len(got.Players))
	}
}

func TestCoordinator_List(t *testing.T) {
	ctx := context.Background()
	td := newTestDeps()
	td.ledger.set("host", 500)
	c := newTestCoordinator(td)

	if len(c.List()) != 0 {
		t.Error("fresh coordinator should list no rooms")
	}

	c.Create(ctx, CreateRoomRequest{GameType: "crash", Bet: 10, MaxPlayers: 2, UserID: "host"})
	c.Create(ctx, CreateRoomRequest{GameType: "mines", Bet: 10, MaxPlayers: 2, UserID: "host", MineCount: 3})

	if got := len(c.List()); got != 2 {
		t.Errorf("List() returned %d rooms, want 2", got)
	}
}
