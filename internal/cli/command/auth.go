package command

import (
	"bufio"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/cli/output"
	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/core/service"
	"github.com/yndnr/jobdesk-go/internal/telemetry/logger"
	"github.com/yndnr/jobdesk-go/pkg/token"
)

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email, password and role",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "account password (prefer --password-stdin)",
			},
			&cli.BoolFlag{
				Name:  "password-stdin",
				Usage: "read the password from the first line of stdin",
			},
			&cli.StringFlag{
				Name:    "role",
				Aliases: []string{"r"},
				Usage:   "role to sign in as: user, company, admin",
				Value:   string(domain.RoleUser),
			},
		},
		Action: loginAction,
	}
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and forget the saved session",
		Action: logoutAction,
	}
}

// WhoAmICommand returns the whoami command.
func WhoAmICommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in identity",
		Action: whoamiAction,
	}
}

func loginAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	password := c.String("password")
	if c.Bool("password-stdin") {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return domain.ErrMissingArgument.WithDetails("no password on stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	role, err := domain.ParseRole(c.String("role"))
	if err != nil {
		return err
	}

	out, err := rt.Manager.Login(c.Context, service.Credentials{
		Email:    c.String("email"),
		Password: password,
		Role:     role,
	})
	if err != nil {
		return err
	}

	if rt.format != output.FormatTable {
		return rt.Print(map[string]any{
			"identity": out.Identity,
			"location": out.Landing,
		})
	}
	rt.Printf("Signed in as %s (%s). Now at %s\n", out.Identity.DisplayName(), out.Identity.Role, out.Landing)
	return nil
}

func logoutAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	wasSignedIn := rt.Manager.State() == service.StateAuthenticated
	if err := rt.Manager.Logout(c.Context); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	if wasSignedIn {
		rt.Printf("Signed out.\n")
	} else {
		rt.Printf("Not signed in.\n")
	}
	return nil
}

// Identity is the whoami view.
type Identity struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Location     string     `json:"location"`
	SignedInAt   time.Time  `json:"signed_in_at"`
	TokenID      string     `json:"token_fingerprint"`
	TokenExpires *time.Time `json:"token_expires_at,omitempty"`
	Sealed       bool       `json:"sealed"`
}

func whoamiAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	sess := rt.Manager.Session()
	if !sess.IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}

	view := Identity{
		ID:         sess.Identity.ID,
		Name:       sess.Identity.Name,
		Email:      sess.Identity.Email,
		Role:       sess.Identity.Role.String(),
		Location:   rt.Nav.Current(c.Context),
		SignedInAt: time.UnixMilli(sess.CreatedAt),
		TokenID:    token.Fingerprint(sess.Token),
		Sealed:     rt.Store.Sealed(),
	}
	if claims, err := token.Peek(sess.Token); err == nil && !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt
		view.TokenExpires = &exp
	} else if err != nil {
		logger.L(c.Context).Debug("bearer token is opaque", "error", err)
	}
	return rt.Print(view)
}
