package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"otpentry/internal/entry"
	"otpentry/internal/otp"
	"otpentry/internal/terminal"
)

func cmdEnter() {
	fs := flag.NewFlagSet("enter", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	length := fs.Int("length", 0, "Field length (overrides config)")
	autoPaste := fs.Bool("auto-paste", false, "Apply clipboard codes without asking")
	noClipboard := fs.Bool("no-clipboard", false, "Never read the clipboard")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	if *length > 0 {
		cfg.Field.Length = *length
	}
	if *autoPaste {
		cfg.Clipboard.AutoPasteWithoutPrompt = true
	}
	if *noClipboard {
		cfg.Clipboard.Source = "none"
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v", err)
	}

	logger := setupLogging(cfg, true)
	defer logger.Close()

	tty, err := terminal.Open(os.Stdin, os.Stderr)
	if err != nil {
		if errors.Is(err, terminal.ErrNotTerminal) {
			fatalf("otpentry enter needs an interactive terminal")
		}
		fatalf("Error opening terminal: %v", err)
	}
	defer crashHandler(logger, "enter").Capture(tty.Close)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		code     string
		replayed bool
		status   string
		sess     *entry.Session
		field    *terminal.Field
	)
	renderer := terminal.NewRenderer(os.Stderr)
	redraw := func() {
		renderer.Draw(sess.Reconciler.Cells(), status)
	}

	sess, err = entry.New(entry.Options{
		Config: cfg,
		Logger: logger.Logger,
		OnComplete: func(value string) {
			code = value
			status = ""
			redraw()
			cancel()
		},
		OnAutofillAbandoned: func() {
			status = "autofill interrupted, type the code"
			redraw()
		},
		OnOffer: func(text string) {
			status = fmt.Sprintf("use %s from clipboard? [Enter/Esc]", text)
			redraw()
		},
		OnReplay: func(otp.Episode) {
			replayed = true
		},
	})
	if err != nil {
		tty.Close()
		fatalf("Error starting session: %v", err)
	}
	field = terminal.NewField(sess.Reconciler)

	handleKey := func(k terminal.Key) {
		switch field.HandleKey(k) {
		case terminal.CommandQuit:
			cancel()
			return
		case terminal.CommandCheckClipboard:
			sess.CheckClipboard(ctx)
		case terminal.CommandConfirm:
			if sess.AcceptOffer() {
				status = ""
			}
		case terminal.CommandCancel:
			if _, ok := sess.Offer(); ok {
				sess.DeclineOffer()
				status = ""
			}
		}
		if code == "" {
			redraw()
		}
	}

	sess.Loop.Post(func() {
		sess.Reconciler.SetFocus(0)
		redraw()
	})

	readDone := make(chan error, 1)
	go func() {
		err := tty.ReadKeys(ctx, func(k terminal.Key) {
			if ctx.Err() != nil {
				return
			}
			sess.Loop.Post(func() { handleKey(k) })
		})
		cancel()
		readDone <- err
	}()

	runErr := sess.Run(ctx)
	cancel()
	readErr := <-readDone
	sess.Close()
	renderer.Line("")
	tty.Close()

	if runErr != nil {
		fatalf("Error: %v", runErr)
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		fatalf("Error reading input: %v", readErr)
	}
	if code == "" {
		os.Exit(1)
	}
	if replayed {
		fmt.Fprintln(os.Stderr, "Warning: this code was already entered in an earlier session.")
	}
	fmt.Println(code)
}
