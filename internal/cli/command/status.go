package command

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/infra/buildinfo"
	"github.com/yndnr/jobdesk-go/pkg/token"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show session, location, storage and build information",
		Action: statusAction,
	}
}

// Status is the status view.
type Status struct {
	State          string     `json:"state"`
	User           string     `json:"user,omitempty"`
	Role           string     `json:"role,omitempty"`
	Location       string     `json:"location"`
	ReturnHint     string     `json:"return_hint,omitempty"`
	TokenExpires   *time.Time `json:"token_expires_at,omitempty"`
	TokenExpired   bool       `json:"token_expired"`
	Server         string     `json:"server"`
	Storage        string     `json:"storage"`
	StorageBytes   uint64     `json:"storage_bytes"`
	Sealed         bool       `json:"sealed"`
	InstallationID string     `json:"installation_id"`
	Version        string     `json:"version"`
}

// Status collects the status view.
func (rt *Runtime) Status(ctx context.Context) Status {
	st := Status{
		State:          rt.Manager.State().String(),
		Location:       rt.Nav.Current(ctx),
		ReturnHint:     rt.Nav.PeekReturnHint(ctx),
		Server:         rt.Client.BaseURL(),
		Storage:        rt.Config.Storage.Engine,
		Sealed:         rt.Store.Sealed(),
		InstallationID: rt.ClientID,
		Version:        buildinfo.Get().Version,
	}

	if sess := rt.Manager.Session(); sess.IsAuthenticated() {
		st.User = sess.Identity.DisplayName()
		st.Role = sess.Identity.Role.String()
		if claims, err := token.Peek(sess.Token); err == nil && !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			st.TokenExpires = &exp
			st.TokenExpired = claims.Expired(time.Now())
		}
	}

	if stats, err := rt.KV.Stats(ctx); err == nil {
		st.Storage = stats.Engine
		st.StorageBytes = stats.TotalSize
	} else {
		rt.Logger.Warn("storage stats unavailable", "error", err)
	}
	return st
}

func statusAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	return rt.Print(rt.Status(c.Context))
}
