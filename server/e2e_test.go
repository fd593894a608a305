package server_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"badc0de.net/pkg/voidofdreams/client"
	"badc0de.net/pkg/voidofdreams/config"
	"badc0de.net/pkg/voidofdreams/gameworld"
	"badc0de.net/pkg/voidofdreams/geom"
	"badc0de.net/pkg/voidofdreams/server"
	"badc0de.net/pkg/voidofdreams/stats"
	"badc0de.net/pkg/voidofdreams/ttesting"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// locked evaluates cond with w's lock held.
func locked(w gameworld.World, cond func() bool) func() bool {
	return func() bool {
		w.Lock()
		defer w.Unlock()
		return cond()
	}
}

func lookup(w gameworld.World, name string) gameworld.Player {
	p, err := w.Player(name)
	if err != nil {
		return nil
	}
	return p
}

func connect(t *testing.T, srv *server.Server, name string) (*client.Session, *gameworld.MemoryWorld) {
	t.Helper()
	cfg := config.Default()
	cfg.Username = name
	cfg.Port = srv.StreamAddr().(*net.TCPAddr).Port
	cfg.PollTimeout = 10 * time.Millisecond

	w := gameworld.NewMemoryWorld()
	s := client.New(w)
	if err := s.Start(cfg); err != nil {
		t.Fatalf("%s: Start: %v", name, err)
	}
	t.Cleanup(s.Stop)
	return s, w
}

func hasDatagramAddr(srv *server.Server, name string) bool {
	for _, c := range srv.Clients() {
		if c.Username == name && c.DatagramAddr != "" {
			return true
		}
	}
	return false
}

func TestAliceAndBob(t *testing.T) {
	store, err := stats.Open(filepath.Join(t.TempDir(), "stats.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	srv := server.New(server.WithStats(store))
	cfg := config.Default()
	cfg.Port = 0
	cfg.PollTimeout = 10 * time.Millisecond
	if err := srv.Start(cfg); err != nil {
		t.Fatalf("server Start: %v", err)
	}
	defer srv.Stop()

	// alice connects and learns about herself from the server's broadcast.
	alice, aw := connect(t, srv, "alice")
	eventually(t, "alice's local player", locked(aw, func() bool {
		lp := aw.LocalPlayer()
		return lp != nil && lp.Username() == "alice"
	}))

	// bob connects and gets a placeholder for alice, not yet active.
	bob, bw := connect(t, srv, "bob")
	eventually(t, "bob's placeholder for alice", locked(bw, func() bool {
		return lookup(bw, "alice") != nil && bw.LocalPlayer() != nil
	}))
	bw.Lock()
	ttesting.AssertTrue(t, "alice inactive for bob", !lookup(bw, "alice").Active())
	bw.Unlock()
	eventually(t, "alice learns about bob", locked(aw, func() bool { return lookup(aw, "bob") != nil }))

	// alice spawns.
	aw.Lock()
	aw.LocalPlayer().Spawn()
	if err := alice.SendSpawn(); err != nil {
		t.Errorf("SendSpawn: %v", err)
	}
	aw.Unlock()
	eventually(t, "alice active for bob", locked(bw, func() bool { return lookup(bw, "alice").Active() }))

	// alice moves and bob's copy of her follows. Datagrams may be lost, so
	// keep sending until one arrives.
	eventually(t, "bob's datagram address", func() bool { return hasDatagramAddr(srv, "bob") })
	target := geom.Translation(geom.Vec3{0, 0, 0.25})
	eventually(t, "bob sees alice move", func() bool {
		aw.Lock()
		aw.LocalPlayer().SetTransform(target)
		alice.SendMove(target)
		aw.Unlock()
		time.Sleep(10 * time.Millisecond)

		bw.Lock()
		defer bw.Unlock()
		return lookup(bw, "alice").Transform() == target
	})

	// bob shoots alice. alice's session decides the damage and, on the
	// fourth hit, her death.
	for i := 0; i < 4; i++ {
		bw.Lock()
		if err := bob.SendRay(geom.Vec3{0, 0, 5}, geom.Vec3{0, 0, -1}); err != nil {
			t.Errorf("SendRay: %v", err)
		}
		bw.Unlock()
	}
	eventually(t, "alice dead for alice", locked(aw, func() bool { return aw.LocalPlayer().Deaths() == 1 }))
	eventually(t, "alice dead for bob", locked(bw, func() bool {
		return !lookup(bw, "alice").Active() && bw.LocalPlayer().Kills() == 1
	}))
	bw.Lock()
	ttesting.AssertEqualFloat32(t, "alice health for bob", lookup(bw, "alice").Health(), 0)
	bw.Unlock()

	eventually(t, "scoreboard", func() bool {
		board, err := store.Scoreboard()
		return err == nil && len(board) == 2 && board[0].Name == "bob" && board[0].Kills == 1 && board[1].Deaths == 1
	})

	// alice leaves; bob forgets her entirely.
	alice.Stop()
	eventually(t, "bob forgets alice", locked(bw, func() bool { return lookup(bw, "alice") == nil }))
	eventually(t, "server forgets alice", func() bool {
		cs := srv.Clients()
		return len(cs) == 1 && cs[0].Username == "bob"
	})

	// The server going away clears bob's world.
	srv.Stop()
	select {
	case <-bob.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("bob did not notice the server stopping")
	}
	ttesting.AssertEqualString(t, "bob state", bob.State().String(), "disconnected")
}
