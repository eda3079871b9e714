// Command fetch requests a status URL once and prints the parsed vars.
//
//	fetch [url]
//
// The URL defaults to target_url from config. Relative URLs resolve against
// base_url.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-status-poller/internal/app"
	"github.com/samvad-hq/samvad-status-poller/internal/config"
	"github.com/samvad-hq/samvad-status-poller/internal/logger"
	"github.com/samvad-hq/samvad-status-poller/internal/requester"
	"github.com/samvad-hq/samvad-status-poller/pkg/httpclient"
)

var errNotOK = errors.New("status request did not return 200")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target := cfg.TargetURL
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctors, err := httpclient.Constructors(cfg.Transports)
	if err != nil {
		return fmt.Errorf("resolve transports: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := app.NewSink(ctx, target, nil, nil, log)
	client := requester.New(requester.Options{
		Constructors: ctors,
		Parser:       sink,
		Logger:       log,
		MIMEOverride: cfg.MIMEOverride,
		BaseURL:      cfg.BaseURL,
		Notifier: requester.NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		}),
	})

	handle, err := client.Initiate(target)
	if err != nil {
		return err
	}
	res, err := handle.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", target, err)
	}
	if !res.OK() {
		return fmt.Errorf("%w: %s answered %d via %s", errNotOK, target, res.Status, handle.Transport())
	}

	parsed, _ := sink.Latest()
	for _, k := range parsed.Keys() {
		fmt.Printf("%s=%s\n", k, parsed[k])
	}
	return nil
}
