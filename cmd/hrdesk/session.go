package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hrdesk/hrdesk-client/internal/bootstrap"
	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

type loginOptions struct {
	User       string
	Password   string
	RememberMe bool
}

func parseLoginFlags(args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.User, "user", "", "Username or email (required)")
	fs.StringVar(&opts.Password, "password", "", "Password (prompted when omitted)")
	fs.BoolVar(&opts.RememberMe, "remember", false, "Request an extended refresh token lifetime")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}

	opts.User = strings.TrimSpace(opts.User)
	if opts.User == "" {
		return loginOptions{}, errors.New("--user is required")
	}
	return opts, nil
}

// withSession wires the session core, restores any persisted session and
// hands control to f. Teardown always runs.
func withSession(cmdCtx *commandContext, f func(ctx context.Context, s *bootstrap.Session) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := bootstrap.BuildSession(ctx, cmdCtx.Config, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			cmdCtx.Logger.Warn("session teardown failed", "error", cerr)
		}
	}()

	if err := s.Manager.Initialize(ctx); err != nil {
		// A broken session store should not block the command; the
		// manager is initialized and anonymous at this point.
		cmdCtx.Logger.Warn("session restore failed", "error", err)
	}

	return f(ctx, s)
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}

	if opts.Password == "" {
		opts.Password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	return withSession(cmdCtx, func(ctx context.Context, s *bootstrap.Session) error {
		user, err := s.Manager.Login(ctx, ports.Credentials{
			Identifier: opts.User,
			Password:   opts.Password,
			RememberMe: opts.RememberMe,
		})
		if err != nil {
			return err
		}

		if err := writef(os.Stdout, "Logged in as %s (%s)\n", user.DisplayName(), user.RoleDisplayName); err != nil {
			return err
		}
		landing := domainsession.DefaultRouteForRole(user.Role)
		return writef(os.Stdout, "Landing page: %s\n", landing)
	})
}

func promptPassword() (string, error) {
	if err := writef(os.Stderr, "Password: "); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	return withSession(cmdCtx, func(ctx context.Context, s *bootstrap.Session) error {
		snap := s.Manager.Snapshot()
		if !snap.Authenticated || snap.User == nil {
			return errors.New("not logged in")
		}
		return printUser(snap)
	})
}

func printUser(snap domainsession.State) error {
	user := snap.User
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	rows := [][2]string{
		{"User", user.DisplayName()},
		{"Email", user.Email},
		{"Role", fmt.Sprintf("%s (%s)", user.Role, user.RoleDisplayName)},
		{"Login time", formatTime(snap.LoginTime)},
		{"Token expires", formatTime(snap.TokenExpiresAt)},
	}
	if policy, ok := domainsession.PolicyFor(user.Role); ok {
		rows = append(rows, [2]string{"Routes", strings.Join(policy.Routes, ", ")})
	}
	for _, p := range []domainsession.Permission{
		domainsession.PermManageEmployees,
		domainsession.PermApproveLeaves,
		domainsession.PermViewGlobalStats,
		domainsession.PermExportData,
	} {
		rows = append(rows, [2]string{string(p), fmt.Sprintf("%t", user.HasPermission(p))})
	}

	for _, row := range rows {
		if err := writef(w, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(time.RFC1123)
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	return withSession(cmdCtx, func(ctx context.Context, s *bootstrap.Session) error {
		snap := s.Manager.Snapshot()
		if !snap.Authenticated {
			return writeln(os.Stdout, "No active session.")
		}
		s.Manager.Logout(ctx)
		return writeln(os.Stdout, "Logged out.")
	})
}

// runWatch keeps the lifecycle running and streams notifications until
// interrupted. Lines typed on stdin count as user activity.
func runWatch(cmdCtx *commandContext, _ []string) error {
	return withSession(cmdCtx, func(ctx context.Context, s *bootstrap.Session) error {
		snap := s.Manager.Snapshot()
		if !snap.Authenticated || snap.User == nil {
			return errors.New("not logged in")
		}

		s.Manager.StartLifecycle(ctx)
		defer s.Manager.StopLifecycle()

		if err := writef(os.Stdout, "Watching session for %s; press enter to register activity, Ctrl-C to quit.\n",
			snap.User.DisplayName()); err != nil {
			return err
		}

		go forwardActivity(ctx, s)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		seen := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				events := s.Events.Events()
				for _, ev := range events[seen:] {
					if err := writef(os.Stdout, "[%s] %s: %s\n",
						ev.At.Local().Format(time.Kitchen), ev.Severity, ev.Message); err != nil {
						return err
					}
				}
				seen = len(events)

				if !s.Manager.Snapshot().Authenticated {
					return writeln(os.Stdout, "Session ended.")
				}
			}
		}
	})
}

func forwardActivity(ctx context.Context, s *bootstrap.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case s.Manager.Activity() <- struct{}{}:
		case <-ctx.Done():
			return
		default:
		}
	}
}
