// Package authctl implements the operator command line for the auth
// service. Configuration flags are shared with the server; the command and
// its arguments are the remaining positional words.
package authctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server"
	"github.com/dmitrijs2005/authservice/internal/server/config"
	"github.com/dmitrijs2005/authservice/internal/server/models"
)

// ErrUsage is returned for an unknown command or missing arguments.
var ErrUsage = errors.New("usage")

const usage = `usage: authctl [config flags] <command> [args]

commands:
  migrate                     apply schema migrations
  sweep                       delete expired refresh tokens once
  register <email>            create a user, password read from the terminal
  revoke-user <email>         delete every refresh token of a user
  revoke-token <token>        revoke a single refresh token
  set-role <email> <role>     ROLE_USER or ROLE_ADMIN
  disable <email>
  enable <email>
`

type command struct {
	args int
	run  func(ctx context.Context, app *server.App, out io.Writer, args []string) error
}

var commands = map[string]command{
	"migrate":      {0, migrate},
	"sweep":        {0, sweep},
	"register":     {1, register},
	"revoke-user":  {1, revokeUser},
	"revoke-token": {1, revokeToken},
	"set-role":     {2, setRole},
	"disable":      {1, setEnabled(false)},
	"enable":       {1, setEnabled(true)},
}

// Run executes the command found in args and writes its report to out.
func Run(ctx context.Context, args []string, out io.Writer, log logging.Logger) error {
	words := positional(args)
	if len(words) == 0 {
		fmt.Fprint(out, usage)
		return ErrUsage
	}

	cmd, ok := commands[words[0]]
	if !ok || len(words)-1 != cmd.args {
		fmt.Fprint(out, usage)
		return fmt.Errorf("%w: %s", ErrUsage, strings.Join(words, " "))
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	app, err := server.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(ctx); err != nil {
			log.Warn(ctx, "close failed", "error", err)
		}
	}()

	if words[0] != "migrate" {
		if err := app.Migrate(ctx); err != nil {
			return err
		}
	}

	return cmd.run(ctx, app, out, words[1:])
}

func migrate(ctx context.Context, app *server.App, out io.Writer, _ []string) error {
	if err := app.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "migrations applied")
	return nil
}

func sweep(ctx context.Context, app *server.App, out io.Writer, _ []string) error {
	n, ran, err := app.Sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintln(out, "sweep skipped: lease held by another instance")
		return nil
	}
	fmt.Fprintf(out, "deleted %d expired refresh tokens\n", n)
	return nil
}

func register(ctx context.Context, app *server.App, out io.Writer, args []string) error {
	pw, err := GetPassword(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)

	pair, err := app.Auth.Register(ctx, args[0], string(pw))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s\naccess token:  %s\nrefresh token: %s\n", args[0], pair.AccessToken, pair.RefreshToken)
	return nil
}

func revokeUser(ctx context.Context, app *server.App, out io.Writer, args []string) error {
	u, err := app.Admin.UserByEmail(ctx, args[0])
	if err != nil {
		return err
	}
	n, err := app.Admin.RevokeSessions(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d refresh tokens of %s\n", n, u.Email)
	return nil
}

func revokeToken(ctx context.Context, app *server.App, out io.Writer, args []string) error {
	if err := app.Admin.RevokeToken(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(out, "refresh token revoked")
	return nil
}

func setRole(ctx context.Context, app *server.App, out io.Writer, args []string) error {
	role, err := models.ParseRole(args[1])
	if err != nil {
		return err
	}
	u, err := app.Admin.UserByEmail(ctx, args[0])
	if err != nil {
		return err
	}
	u, err = app.Admin.SetRole(ctx, u.ID, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s now has %s (version %d)\n", u.Email, u.Role, u.Version)
	return nil
}

func setEnabled(enabled bool) func(context.Context, *server.App, io.Writer, []string) error {
	return func(ctx context.Context, app *server.App, out io.Writer, args []string) error {
		u, err := app.Admin.UserByEmail(ctx, args[0])
		if err != nil {
			return err
		}
		u, err = app.Admin.SetEnabled(ctx, u.ID, enabled)
		if err != nil {
			return err
		}
		state := "disabled"
		if u.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(out, "%s %s\n", u.Email, state)
		return nil
	}
}

// positional drops "-flag value" and "-flag=value" pairs from args. Every
// config flag takes a value.
func positional(args []string) []string {
	var words []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			words = append(words, a)
			continue
		}
		if strings.Contains(a, "=") {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return words
}
