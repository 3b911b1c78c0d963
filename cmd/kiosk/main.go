package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_cart/kiosk-service/internal/catalog"
	"github.com/fjod/go_cart/kiosk-service/internal/config"
	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/fjod/go_cart/kiosk-service/internal/gateway"
	kioskhttp "github.com/fjod/go_cart/kiosk-service/internal/http"
	"github.com/fjod/go_cart/kiosk-service/internal/logger"
	"github.com/fjod/go_cart/kiosk-service/internal/notify"
	"github.com/fjod/go_cart/kiosk-service/internal/qr"
	"github.com/fjod/go_cart/kiosk-service/internal/scanner"
	"github.com/fjod/go_cart/kiosk-service/internal/session"
)

func main() {
	app := &cli.App{
		Name:           "kiosk",
		Usage:          "RFID self-checkout kiosk",
		DefaultCommand: "run",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "serve the checkout session until interrupted",
				Action: runKiosk,
			},
			{
				Name:   "catalog",
				Usage:  "load the product catalog and print the active products",
				Action: printCatalog,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, *http.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, nil, nil, err
	}
	zap.ReplaceGlobals(log)

	client := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return cfg, log, client, nil
}

func runKiosk(c *cli.Context) error {
	cfg, log, client, err := setup()
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without a catalog no tag can be resolved, so the kiosk does not start.
	snapshot, err := catalog.NewLoader(client, cfg.BackendURL, log).Load(ctx)
	if err != nil {
		log.Error("catalog unavailable", zap.Error(err))
		return cli.Exit("Error fetching data from the server.", 1)
	}

	var dev scanner.Device
	dev, err = scanner.OpenLineDevice(cfg.DevicePath)
	if err != nil {
		log.Error("rfid reader unavailable", zap.String("path", cfg.DevicePath), zap.Error(err))
		dev = scanner.Unavailable(err)
	}
	tags := scanner.New(dev, snapshot, log,
		scanner.WithCooldown(cfg.ScanCooldown),
		scanner.WithErrorBackoff(cfg.ReadErrorBackoff))
	defer tags.Close()

	g, gctx := errgroup.WithContext(ctx)

	var last kioskhttp.LastNotification
	notifiers := notify.Fanout{notify.NewLog(log)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		publisher := notify.NewRedisPublisher(rdb, cfg.RedisChannel, log, 0)
		notifiers = append(notifiers, publisher)
		last = publisher
		g.Go(func() error { return publisher.Run(gctx) })
	}

	ctrl := session.NewController(cfg.Session(), session.Deps{
		Scanner:  tags,
		Gateway:  gateway.New(client, cfg.BackendURL, log, gateway.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout)),
		Encoder:  qr.NewEncoder(qr.DefaultSize),
		Notifier: notifiers,
		Logger:   log,
	})
	g.Go(func() error { return ctrl.Run(gctx) })

	handler := kioskhttp.NewSessionHandler(ctrl, cfg.HTTPTimeout)
	if last != nil {
		handler.WithLastNotification(last)
	}
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      kioskhttp.NewRouter(handler, log, cfg.HTTPTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	g.Go(func() error {
		log.Info("kiosk api starting", zap.String("addr", cfg.HTTPAddr), zap.Int("products", snapshot.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("kiosk stopped with error", zap.Error(err))
		return cli.Exit(err, 1)
	}
	log.Info("kiosk exited")
	return nil
}

func printCatalog(c *cli.Context) error {
	cfg, log, client, err := setup()
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(c.Context, cfg.HTTPTimeout)
	defer cancel()

	snapshot, err := catalog.NewLoader(client, cfg.BackendURL, log).Load(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UID\tNAME\tPRICE")
	for _, p := range snapshot.Products() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.UID, p.Name, domain.FormatPrice(p.SellingPrice))
	}
	return w.Flush()
}
