package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"otpentry/internal/clipboard"
	"otpentry/internal/config"
	"otpentry/internal/journal"
	"otpentry/internal/otp"
)

// cmdSimulate replays the edit callbacks a phone delivers for SMS autofill: two
// empty insertions in quick succession, then one character per callback, all
// addressed to the first cell.
func cmdSimulate() {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	code := fs.String("code", "123456", "Code to deliver")
	gap := fs.Duration("gap", 5*time.Millisecond, "Delay between deliveries")
	stallAfter := fs.Int("stall-after", 0, "Stop after this many characters (0 delivers all)")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	cfg.Field.Length = len([]rune(*code))
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v", err)
	}
	logger := setupLogging(cfg, false)
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loop := otp.NewLoop(16)
	start := time.Now()
	elapsed := func() string { return time.Since(start).Round(time.Millisecond).String() }

	r, err := otp.New(otp.Options{
		Length:       cfg.Field.Length,
		BurstGap:     cfg.BurstGap(),
		AbandonDelay: cfg.AbandonDelay(),
		Scheduler:    otp.NewLoopScheduler(loop),
		Logger:       logger.Logger,
		OnComplete: func(value string) {
			fmt.Printf("%8s  complete: %s\n", elapsed(), value)
			cancel()
		},
		OnFocusChange: func(i int) {
			if i == otp.NoFocus {
				fmt.Printf("%8s  focus: none\n", elapsed())
				return
			}
			fmt.Printf("%8s  focus: cell %d\n", elapsed(), i)
		},
		OnAutofillAbandoned: func() {
			fmt.Printf("%8s  autofill abandoned\n", elapsed())
			cancel()
		},
	})
	if err != nil {
		fatalf("Error: %v", err)
	}

	chars := []rune(*code)
	if *stallAfter > 0 && *stallAfter < len(chars) {
		chars = chars[:*stallAfter]
	}

	deliver := func(label, text string) {
		loop.Post(func() {
			r.HandleEdit(0, text, 0)
			fmt.Printf("%8s  %-10s phase=%s buffered=%d\n", elapsed(), label, r.Phase(), r.AutofillBuffered())
		})
		time.Sleep(*gap)
	}
	go func() {
		deliver(`""`, "")
		deliver(`""`, "")
		for _, ch := range chars {
			deliver(fmt.Sprintf("%q", ch), string(ch))
		}
	}()

	err = loop.Run(ctx)
	loop.Close()
	if errors.Is(err, context.DeadlineExceeded) {
		fatalf("No outcome before timeout")
	}
}

// cmdClipboard reports whether the clipboard holds a code a field of the
// configured length would offer. The code itself is shown only with -show.
func cmdClipboard() {
	fs := flag.NewFlagSet("clipboard", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	length := fs.Int("length", 0, "Field length (overrides config)")
	show := fs.Bool("show", false, "Print the code")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	if *length > 0 {
		cfg.Field.Length = *length
	}
	logger := setupLogging(cfg, false)
	defer logger.Close()

	accessor, err := clipboard.NewAccessor(cfg.Clipboard.Source)
	if err != nil {
		fatalf("Error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout())
	defer cancel()
	text, err := accessor.Text(ctx)
	if err != nil {
		fatalf("Clipboard unavailable: %v", err)
	}

	w := clipboard.NewWatcher(cfg.ClipboardMode(), &clipboard.Snapshot{}, logger.Logger)
	action := w.CheckAndMaybeOffer(text, cfg.Field.Length)

	switch action.Kind {
	case clipboard.None:
		fmt.Printf("No %d-character code on the clipboard.\n", cfg.Field.Length)
		os.Exit(1)
	case clipboard.AutoApply:
		fmt.Println("Clipboard holds a code; a field would fill it automatically.")
	case clipboard.Prompt:
		fmt.Println("Clipboard holds a code; a field would offer to paste it.")
	}
	if *show {
		fmt.Println(action.Text)
	}
}

func cmdJournal() {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	limit := fs.Int("n", 20, "Number of episodes to show")
	stats := fs.Bool("stats", false, "Show totals by provenance")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath)
	if _, err := os.Stat(cfg.Journal.Path); os.IsNotExist(err) {
		fmt.Printf("No journal at %s", cfg.Journal.Path)
		if !cfg.Journal.Enabled {
			fmt.Print(" (journal is disabled; set [journal] enabled = true)")
		}
		fmt.Println()
		return
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		fatalf("Error opening journal: %v", err)
	}
	defer j.Close()

	if *stats {
		s, err := j.Stats()
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("Episodes: %d\n", s.Total)
		for _, p := range []otp.Provenance{otp.ProvenanceKeystroke, otp.ProvenancePaste, otp.ProvenanceAutofill, otp.ProvenanceClipboard} {
			fmt.Printf("  %-10s %d\n", p, s.ByProvenance[p])
		}
		return
	}

	entries, err := j.Recent(*limit)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No episodes recorded.")
		return
	}
	fmt.Printf("%-20s  %-10s  %6s  %10s  %9s  %s\n", "COMPLETED", "SOURCE", "LENGTH", "KEYSTROKES", "DURATION", "ID")
	for _, e := range entries {
		fmt.Printf("%-20s  %-10s  %6d  %10d  %9s  %s\n",
			e.Completed.Local().Format("2006-01-02 15:04:05"),
			e.Provenance,
			e.Length,
			e.Keystrokes,
			e.Completed.Sub(e.Started).Round(time.Millisecond),
			e.ID,
		)
	}
}

func cmdConfig() {
	action := "show"
	args := os.Args[2:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	fs.Parse(args)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	switch action {
	case "show":
		cfg := loadConfig(path)
		data, err := config.Encode(cfg)
		if err != nil {
			fatalf("Error: %v", err)
		}
		os.Stdout.Write(data)
	case "init":
		_, created, err := config.LoadOrCreate(path)
		if err != nil {
			fatalf("Error: %v", err)
		}
		if created {
			fmt.Printf("Created %s\n", path)
		} else {
			fmt.Printf("%s already exists\n", path)
		}
	case "path":
		fmt.Println(path)
	case "schema":
		os.Stdout.Write(config.SchemaJSON())
	case "validate":
		if _, err := config.Load(path); err != nil {
			fatalf("%v", err)
		}
		fmt.Println("Configuration is valid.")
	default:
		fatalf("Unknown config action: %s (use show, init, path, schema or validate)", action)
	}
}
