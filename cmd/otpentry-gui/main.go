package main

import (
	"context"
	"flag"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"otpentry/cmd/otpentry-gui/internal/theme"
	"otpentry/cmd/otpentry-gui/internal/ui"
	"otpentry/internal/config"
	"otpentry/internal/entry"
	"otpentry/internal/logging"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Configuration file")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	loader := config.NewLoader(path, nil)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		log.Fatalf("logging config: %v", err)
	}
	logger, err := logging.New(lc)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	logging.SetDefault(logger)

	crashes := logging.NewCrashHandler(config.CrashDir(), "gui", version, logger.Logger)

	go func() {
		defer crashes.Capture()
		w := new(app.Window)
		w.Option(app.Title("Verification code"))
		w.Option(app.Size(unit.Dp(520), unit.Dp(320)))

		err := loop(w, loader, logger)
		loader.Close()
		logger.Close()
		if err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func loop(w *app.Window, loader *config.Loader, logger *logging.Logger) error {
	t := theme.NewTheme(material.NewTheme())
	screen := ui.NewScreen(t)

	opts := screen.Options()
	opts.Config = loader.Config()
	opts.Logger = logger.Logger
	sess, err := entry.New(opts)
	if err != nil {
		return err
	}
	defer sess.Close()
	screen.Bind(sess)

	// Timer and clipboard callbacks run when the next frame drains the loop.
	sess.Loop.SetNotify(w.Invalidate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader.OnChange(func(prev, next *config.Config) {
		if next.Logging.Level != prev.Logging.Level {
			if level, err := logging.ParseLevel(next.Logging.Level); err == nil {
				logger.SetLevel(level)
			}
		}
		sess.Loop.Post(func() { sess.ApplyConfig(next) })
	})
	if err := loader.Watch(ctx); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	}
	sess.Start(ctx)

	focused := true
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.ConfigEvent:
			if e.Config.Focused && !focused {
				sess.CheckClipboard(ctx)
			}
			focused = e.Config.Focused
		case app.FrameEvent:
			sess.Loop.Drain()
			gtx := app.NewContext(&ops, e)
			screen.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
