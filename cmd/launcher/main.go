package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"launcher/internal/config"
	"launcher/internal/device"
	"launcher/internal/httpserver"
	"launcher/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		addr    = flag.String("addr", "", "listen address (default 0.0.0.0:80)")
		assets  = flag.String("assets", "", "asset root with index.html/message.html (default: embedded)")
		data    = flag.String("data", "", "writable data root (required if -config is not set)")
		script  = flag.String("script", "", "script file name under the data root (default index.js)")
		watch   = flag.Bool("watch", false, "reload message.html when it changes under -assets")
		cfgPath = flag.String("config", "", "path to config json (optional)")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgPath, *addr, *assets, *data, *script, *watch)
	if err != nil {
		log.Fatalf("%v", err)
	}

	reboot, err := run(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if reboot {
		log.Println("[shutdown] rebooting device")
		if err := device.FromArgv(cfg.RebootCommand).Reboot(context.Background()); err != nil {
			log.Fatalf("[shutdown] reboot: %v", err)
		}
	}
}

func loadConfig(path, addr, assets, data, script string, watch bool) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		c, err := config.Decode(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	} else {
		if strings.TrimSpace(data) == "" {
			return cfg, errors.New("missing -data (or provide -config)")
		}
		cfg.DataRoot = data
	}
	// flags override the file
	if addr != "" {
		cfg.Addr = addr
	}
	if assets != "" {
		cfg.AssetRoot = assets
	}
	if script != "" {
		cfg.ScriptName = script
	}
	if watch {
		cfg.WatchAssets = true
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	if cfg.AssetRoot != "" {
		abs, err := filepath.Abs(cfg.AssetRoot)
		if err != nil {
			return cfg, err
		}
		cfg.AssetRoot = abs
	}
	return cfg, nil
}

// lifecycle is the handle the dispatcher uses to end the server after a
// reboot response. Terminate only signals; the shutdown itself runs in run.
type lifecycle struct {
	once      sync.Once
	requested chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{requested: make(chan struct{})}
}

func (l *lifecycle) Terminate() {
	l.once.Do(func() { close(l.requested) })
}

// run serves until a signal or a reboot request. It reports whether the
// device should be rebooted.
func run(cfg config.Config) (reboot bool, err error) {
	store, err := storage.NewDir(cfg.DataRoot)
	if err != nil {
		return false, err
	}
	var assets fs.FS
	if cfg.AssetRoot != "" {
		assets = os.DirFS(cfg.AssetRoot)
	}

	life := newLifecycle()
	srv, err := httpserver.New(httpserver.Options{
		Config:    cfg,
		Assets:    assets,
		Data:      store,
		Lifecycle: life,
	})
	if err != nil {
		return false, err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return false, err
	}
	ln = netutil.LimitListener(ln, cfg.MaxConns)

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	watchCtx, stopWatch := context.WithCancel(gctx)
	defer stopWatch()
	if cfg.WatchAssets {
		g.Go(func() error {
			if err := srv.Templates().Watch(watchCtx, cfg.AssetRoot); err != nil {
				log.Printf("[assets] watch disabled: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-life.requested:
			reboot = true
		case <-gctx.Done():
			log.Println("[shutdown] signal received, shutting down HTTP server...")
		}
		defer stopWatch()

		// Shutdown waits for in-flight responses, including the reboot page.
		sctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMs)*time.Millisecond)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Printf("[shutdown] http server shutdown error: %v", err)
		} else {
			log.Println("[shutdown] http server shut down cleanly")
		}
		return nil
	})

	log.Printf("launcher: installer server starts: addr=%s", ln.Addr())
	log.Printf(" assets: %s", assetsLabel(cfg.AssetRoot))
	log.Printf(" data:   %s", store.Root())
	log.Printf(" script: %s", filepath.Join(store.Root(), cfg.ScriptName))

	if err := g.Wait(); err != nil {
		return false, err
	}
	return reboot, nil
}

func assetsLabel(root string) string {
	if root == "" {
		return "(embedded)"
	}
	return root
}
