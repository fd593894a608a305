// Command voidserv runs a game server, relaying events between the clients
// connected to it.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/voidofdreams/config"
	"badc0de.net/pkg/voidofdreams/paths"
	"badc0de.net/pkg/voidofdreams/server"
	"badc0de.net/pkg/voidofdreams/stats"
	"badc0de.net/pkg/voidofdreams/web"
)

var (
	configPath string
	overrides  = config.RegisterFlags(flag.CommandLine)
	quiet      = flag.Bool("quiet", false, "Do not print the banner")
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

	if !*quiet {
		figure.NewFigure("voidserv", "", true).Print()
	}

	opts := []server.Option{server.WithRegistry(prometheus.DefaultRegisterer)}
	var scores web.Scoreboarder
	if cfg.StatsDatabase != "" {
		store, err := stats.Open(cfg.StatsDatabase)
		if err != nil {
			glog.Exitf("opening stats database: %v", err)
		}
		defer store.Close()
		opts = append(opts, server.WithStats(store))
		scores = store
	}

	srv := server.New(opts...)
	if err := srv.Start(cfg); err != nil {
		glog.Exit(err)
	}
	glog.Infoln("voidserv now listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.DebugListenAddress != "" {
		r := mux.NewRouter()
		web.NewHandler(srv, scores, prometheus.DefaultGatherer).RegisterRoutes(r)
		// golang.org/x/net/trace registers its pages on the default mux.
		r.PathPrefix("/debug/").Handler(http.DefaultServeMux)

		hs := &http.Server{
			Addr:    cfg.DebugListenAddress,
			Handler: handlers.CombinedLoggingHandler(os.Stderr, r),
		}
		g.Go(func() error {
			glog.Infof("debug server listening on %s", cfg.DebugListenAddress)
			if err := hs.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
			glog.Infoln("shutting down")
		case <-srv.Done():
			glog.Warningln("server stopped by itself")
		}
		srv.Stop()
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		glog.Errorln(err)
	}
	glog.Flush()
}
