package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/quillsuite/quill-go/internal/bootstrap"
	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx context.Context
	App *bootstrap.App
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
	logger := bootstrap.InitLogger(cfg.IsDev)

	ctx := context.Background()
	app, err := bootstrap.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "wire client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := app.Close(ctx); closeErr != nil {
			logger.WarnContext(ctx, "close client", "error", closeErr)
		}
	}()

	app.Start(ctx)

	cmdCtx := &commandContext{Ctx: ctx, App: app}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1)
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Authenticate with email and password",
			run:         runLogin,
		},
		"sso-login": {
			name:        "sso-login",
			description: "Authenticate via the configured SSO identity provider",
			run:         runSSOLogin,
		},
		"guest": {
			name:        "guest",
			description: "Start a guest session (requires the guest-access feature)",
			run:         runGuest,
		},
		"logout": {
			name:        "logout",
			description: "Run the secure logout procedure",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the restored local identity",
			run:         runWhoami,
		},
		"status": {
			name:        "status",
			description: "Show server-side session status and guest-access flag",
			run:         runStatus,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: quill <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func runLogin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (omit to be prompted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		value, err := prompt("Password: ")
		if err != nil {
			return err
		}
		*password = value
	}

	rec, err := ctx.App.Auth.Login(ctx.Ctx, *email, *password)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "logged in as %s (%s)\n", rec.DisplayName, rec.Email)
}

func runSSOLogin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("sso-login", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ctx.App.SSO == nil {
		return apperrors.Validation("SSO login is not configured (set QUILL_SSO_ENABLED and QUILL_SSO_ISSUER_URL)")
	}

	sess, err := ctx.App.SSO.Begin(ctx.Ctx)
	if err != nil {
		return err
	}
	if err := writef(os.Stdout, "Open this URL in a browser and sign in:\n\n  %s\n\n", sess.AuthURL); err != nil {
		return err
	}

	redirect, err := prompt("Paste the full redirect URL: ")
	if err != nil {
		return err
	}
	code, state, err := parseCallback(redirect)
	if err != nil {
		return err
	}

	rawIDToken, err := ctx.App.SSO.Exchange(ctx.Ctx, sess, code, state)
	if err != nil {
		return err
	}

	rec, err := ctx.App.Auth.LoginWithSSOToken(ctx.Ctx, rawIDToken)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "logged in as %s (%s)\n", rec.DisplayName, rec.Email)
}

func runGuest(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("guest", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := ctx.App.Guest.Start(ctx.Ctx)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "guest session started: %s\n", rec.ID)
}

func runLogout(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx.App.Logout.Logout(ctx.Ctx)
	return write(os.Stdout, "logged out\n")
}

func runWhoami(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	id := ctx.App.Store.Identity()
	switch {
	case id.IsAuthenticated():
		return writef(os.Stdout, "authenticated: %s (%s) role=%s\n", id.Record.DisplayName, id.Record.Email, id.Record.Role)
	case id.IsGuest():
		return writef(os.Stdout, "guest: %s\n", id.Record.ID)
	default:
		return write(os.Stdout, "anonymous\n")
	}
}

func runStatus(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		guestAccess bool
		current     identity.Record
		currentErr  error
	)

	// The guest-access flag is public; the current-user call exercises the
	// full interceptor pipeline.
	g, gctx := errgroup.WithContext(ctx.Ctx)
	g.Go(func() error {
		enabled, err := ctx.App.AuthAPI.GuestAccessStatus(gctx)
		if err != nil {
			return err
		}
		guestAccess = enabled
		return nil
	})
	g.Go(func() error {
		current, currentErr = ctx.App.Client.CurrentUser(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writef(os.Stdout, "guest access enabled: %t\n", guestAccess); err != nil {
		return err
	}
	if currentErr != nil {
		return writef(os.Stdout, "session: none (%v)\n", currentErr)
	}
	return writef(os.Stdout, "session: %s (%s)\n", current.DisplayName, current.Email)
}

func parseCallback(redirect string) (code, state string, err error) {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return "", "", fmt.Errorf("parse redirect URL: %w", err)
	}
	query := u.Query()
	code = query.Get("code")
	state = query.Get("state")
	if code == "" {
		return "", "", errors.New("redirect URL carries no authorization code")
	}
	return code, state, nil
}

func prompt(label string) (string, error) {
	if err := write(os.Stdout, label); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}
