// Command voidbot connects to a voidserv as a player that walks in a circle
// and shoots at the centre of it, printing what happens in the world.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/gookit/color"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/voidofdreams/client"
	"badc0de.net/pkg/voidofdreams/config"
	"badc0de.net/pkg/voidofdreams/gameworld"
	"badc0de.net/pkg/voidofdreams/geom"
	"badc0de.net/pkg/voidofdreams/paths"
)

var (
	configPath string
	overrides  = config.RegisterFlags(flag.CommandLine)

	radius       = flag.Float64("radius", 5, "Radius of the circle the bot walks")
	tick         = flag.Duration("tick", 50*time.Millisecond, "Interval between moves")
	fireEvery    = flag.Int("fire_every", 20, "Fire a ray every this many ticks; 0 to never fire")
	respawnDelay = flag.Duration("respawn_delay", 3*time.Second, "How long the bot stays dead")
	noColor      = flag.Bool("no_color", false, "Do not colour the event log even on a terminal")
)

func main() {
	paths.SetupFilePathFlag(flag.CommandLine, config.FileName, "config_path", &configPath)
	flagutil.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		glog.Exitf("loading configuration: %v", err)
	}
	overrides.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		glog.Exit(err)
	}

	w := gameworld.NewMemoryWorld()
	w.Observe(printer(!*noColor && terminal.IsTerminal(int(os.Stdout.Fd()))))

	s := client.New(w)
	if err := s.Start(cfg); err != nil {
		glog.Exit(err)
	}
	glog.Infof("connected to %s:%d as %q", cfg.Address, cfg.Port, cfg.Username)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		play(ctx, w, s)
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.Done():
			stop()
			return fmt.Errorf("disconnected from server")
		}
		s.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		glog.Errorln(err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}

// play drives the local player until ctx is done.
func play(ctx context.Context, w *gameworld.MemoryWorld, s *client.Session) {
	t := time.NewTicker(*tick)
	defer t.Stop()

	var (
		ticks    int
		diedAt   time.Time
		wasAlive bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		ticks++

		w.Lock()
		me := w.LocalPlayer()
		switch {
		case me == nil:
			// The server has not echoed our Connect yet.
		case !me.Active():
			if wasAlive {
				diedAt = time.Now()
				wasAlive = false
			}
			if time.Since(diedAt) >= *respawnDelay {
				me.Spawn()
				s.SendSpawn()
				wasAlive = true
			}
		default:
			wasAlive = true
			angle := float64(ticks) * 0.05
			pos := geom.Vec3{float32(*radius * math.Cos(angle)), 0, float32(*radius * math.Sin(angle))}
			m := geom.Translation(pos)
			me.SetTransform(m)
			s.SendMove(m)

			if *fireEvery > 0 && ticks%*fireEvery == 0 {
				s.SendRay(pos, pos.Scale(-1))
			}
		}
		w.Unlock()
	}
}

// printer returns an observer writing one line per world event to stdout.
// It runs with the world lock held.
func printer(colored bool) func(gameworld.Event) {
	return func(ev gameworld.Event) {
		who := ev.Player
		if ev.Local {
			who += " (you)"
		}
		var line string
		c := color.Normal
		switch ev.Kind {
		case gameworld.EventJoined:
			line, c = fmt.Sprintf("%s joined", who), color.Cyan
		case gameworld.EventLeft:
			line, c = fmt.Sprintf("%s left", who), color.Gray
		case gameworld.EventSpawned:
			line, c = fmt.Sprintf("%s spawned", who), color.Green
		case gameworld.EventDamaged:
			line, c = fmt.Sprintf("%s was hit by %s, health %.0f", who, ev.Other, ev.Health), color.Yellow
		case gameworld.EventDied:
			if ev.Other != "" {
				line = fmt.Sprintf("%s was killed by %s", who, ev.Other)
			} else {
				line = fmt.Sprintf("%s died", who)
			}
			c = color.Red
		default:
			line = fmt.Sprintf("%s: %v", who, ev.Kind)
		}
		if colored {
			c.Println(line)
		} else {
			fmt.Println(line)
		}
	}
}
