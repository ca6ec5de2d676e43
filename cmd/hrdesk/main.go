package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/hrdesk/hrdesk-client/config"
	"github.com/hrdesk/hrdesk-client/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if err := printUsage(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := bootstrap.InitLogger(cfg.Debug)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Authenticate against the HR backend and persist the session",
			run:         runLogin,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the current user, role and accessible routes",
			run:         runWhoami,
		},
		"logout": {
			name:        "logout",
			description: "End the session locally and server-side",
			run:         runLogout,
		},
		"watch": {
			name:        "watch",
			description: "Keep the session alive and stream lifecycle notifications",
			run:         runWatch,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: hrdesk <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := cmds[name]
		if err := writef(os.Stdout, "  %-10s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
