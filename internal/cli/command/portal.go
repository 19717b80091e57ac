package command

import (
	"net"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/server/portal"
)

const (
	portalRateLimit = 50
	portalBurst     = 100
)

// PortalCommand returns the local web portal command.
func PortalCommand() *cli.Command {
	return &cli.Command{
		Name:  "portal",
		Usage: "Serve the role-gated views to a local browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen address (loopback only), overrides portal.listen",
			},
		},
		Action: portalAction,
	}
}

func portalAction(c *cli.Context) error {
	if isNested(c) {
		return domain.ErrInvalidArgument.WithDetails("run the portal outside the shell")
	}
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	addr := rt.Config.Portal.Listen
	if c.IsSet("listen") {
		addr = c.String("listen")
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := portal.NewServer(l.Addr().String(), rt.PortalHandler(addr, l.Addr().String()))
	rt.Shutdown.OnShutdown("portal", srv.Shutdown)
	rt.WatchConfig()

	rt.Logger.Info("portal listening", "addr", l.Addr().String())
	rt.Printf("portal listening on http://%s\n", l.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case <-c.Context.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// PortalHandler builds the portal over the runtime's components. hosts are
// the listen addresses the browser may use in the Host header.
func (rt *Runtime) PortalHandler(hosts ...string) http.Handler {
	return portal.NewHandler(portal.Config{
		Manager:   rt.Manager,
		Router:    rt.Router,
		Views:     rt.Client,
		Nav:       rt.Nav,
		Flash:     rt.Flash,
		Metrics:   rt.Metrics,
		Logger:    rt.Logger,
		Hosts:     hosts,
		RateLimit: portalRateLimit,
		Burst:     portalBurst,
	})
}
