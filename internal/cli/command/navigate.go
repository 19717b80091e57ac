package command

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jobdesk-go/internal/cli/connection"
	"github.com/yndnr/jobdesk-go/internal/cli/output"
	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/core/guard"
)

// OpenCommand returns the open command.
func OpenCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Aliases:   []string{"go"},
		Usage:     "Navigate to a view; the route guard may redirect",
		ArgsUsage: "PATH",
		Action:    openAction,
	}
}

// WhereCommand returns the where command.
func WhereCommand() *cli.Command {
	return &cli.Command{
		Name:   "where",
		Usage:  "Show the current location",
		Action: whereAction,
	}
}

// RoutesCommand returns the routes command.
func RoutesCommand() *cli.Command {
	return &cli.Command{
		Name:   "routes",
		Usage:  "List views and whether the current session may open them",
		Action: routesAction,
	}
}

// Outcomes reported by open besides the guard's own.
const outcomeSessionExpired = "session_expired"

// View is the result of opening a path.
type View struct {
	Requested string          `json:"requested"`
	Outcome   string          `json:"outcome"`
	Location  string          `json:"location"`
	Title     string          `json:"title,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// Table renders the view summary followed by the content as JSON.
func (v *View) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("requested", v.Requested)
	t.AddRow("outcome", v.Outcome)
	t.AddRow("location", v.Location)
	if v.Title != "" {
		t.AddRow("title", v.Title)
	}
	if len(v.Content) > 0 {
		t.AddRow("content", string(v.Content))
	}
	return t
}

// Open evaluates p against the route table for the current session and
// navigates accordingly. Admitted views with a backend endpoint are
// fetched; a 401 on that fetch ends the session through the manager.
func (rt *Runtime) Open(ctx context.Context, p string) (*View, error) {
	if strings.TrimSpace(p) == "" {
		return nil, domain.ErrMissingArgument.WithDetails("path is required")
	}
	requested := domain.CleanPath(p)

	decision, match, err := rt.Router.Evaluate(rt.Manager.Session(), requested)
	if err != nil {
		return nil, err
	}
	rt.Metrics.ObserveGuard(decision.Outcome.String())

	view := &View{Requested: requested, Outcome: decision.Outcome.String()}
	if decision.Outcome != guard.Admit {
		view.Location = rt.Nav.Apply(ctx, decision)
		return view, nil
	}

	rt.Nav.Go(ctx, requested)
	view.Location = requested
	view.Title = match.Route.Title

	endpoint := match.Endpoint()
	if endpoint == "" {
		return view, nil
	}

	resp, err := rt.Client.Get(ctx, endpoint)
	if err != nil {
		return nil, domain.ErrAuthUnavailable.WithCause(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		view.Outcome = outcomeSessionExpired
		view.Location = rt.Nav.Current(ctx)
		return view, nil
	}

	var content json.RawMessage
	if err := connection.ParseResponse(resp, &content); err != nil {
		var apiErr *connection.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.ErrViewNotFound.WithDetails(requested).WithCause(err)
		}
		return nil, err
	}
	view.Content = content
	return view, nil
}

func openAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	view, err := rt.Open(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return rt.Print(view)
}

// Location is the where view.
type Location struct {
	Current    string `json:"current"`
	ReturnHint string `json:"return_hint,omitempty"`
	State      string `json:"state"`
}

func whereAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	return rt.Print(Location{
		Current:    rt.Nav.Current(c.Context),
		ReturnHint: rt.Nav.PeekReturnHint(c.Context),
		State:      rt.Manager.State().String(),
	})
}

// RouteRow is one line of the routes listing.
type RouteRow struct {
	Pattern  string `json:"pattern"`
	Title    string `json:"title"`
	Roles    string `json:"roles"`
	Endpoint string `json:"endpoint"`
	Access   string `json:"access"`
}

// Routes lists the route table with the guard outcome for the current
// session.
func (rt *Runtime) Routes() []RouteRow {
	sess := rt.Manager.Session()
	var rows []RouteRow
	for _, r := range rt.Router.Routes() {
		roles := "any"
		switch {
		case r.Public:
			roles = "public"
		case len(r.Allowed) > 0:
			names := make([]string, len(r.Allowed))
			for i, role := range r.Allowed {
				names[i] = role.String()
			}
			roles = strings.Join(names, ",")
		}

		access := "unknown"
		if d, _, err := rt.Router.Evaluate(sess, r.Pattern); err == nil {
			access = d.Outcome.String()
		}

		rows = append(rows, RouteRow{
			Pattern:  r.Pattern,
			Title:    r.Title,
			Roles:    roles,
			Endpoint: r.Endpoint,
			Access:   access,
		})
	}
	return rows
}

func routesAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	return rt.Print(rt.Routes())
}
