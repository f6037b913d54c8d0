// Package cli implements the command line of the dashboard client.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/narvanalabs/builder-dashboard/internal/dashboard"
	"github.com/narvanalabs/builder-dashboard/internal/dashboard/memview"
	"github.com/narvanalabs/builder-dashboard/internal/dashboard/termview"
	"github.com/narvanalabs/builder-dashboard/pkg/config"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
	"github.com/narvanalabs/builder-dashboard/web/api"
)

// ExitError is an error that carries the process exit code. An empty Message
// means the failure was already reported on the output.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usage = `
builder-dashboard - terminal client for the builder dashboard.

Usage:
  builder-dashboard [options] <command> [command options]

Commands:
  watch                  Follow the activity feed and the executions table.
  status <execution-id>  Follow the status of one execution.
  execute                Trigger an execution.
  register               Register a builder.
  builders               List registered builders.
  health                 Show the health of the backend.

Options:
`

// repaintInterval is how often a live screen checks for changes.
const repaintInterval = 250 * time.Millisecond

// Options are the parsed global options.
type Options struct {
	APIURL  string
	Timeout time.Duration
	Once    bool
	Live    bool
	NoColor bool
	Command string
	Args    []string
}

// Parse processes global options. It reports true when the program should exit
// cleanly, e.g. after printing help.
func Parse(args []string, cfg *config.Config, output io.Writer) (*Options, bool, error) {
	fs := flag.NewFlagSet("builder-dashboard", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}

	opts := &Options{}
	fs.StringVar(&opts.APIURL, "api-url", cfg.Dashboard.APIURL, "Base URL of the dashboard API.")
	fs.DurationVar(&opts.Timeout, "timeout", cfg.Dashboard.RequestTimeout, "Per-request timeout.")
	fs.BoolVar(&opts.Once, "once", false, "Render a single frame and exit instead of following.")
	fs.BoolVar(&opts.Live, "live", true, "Clear the terminal before each frame.")
	fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, true, nil
	}

	opts.Command = fs.Arg(0)
	opts.Args = fs.Args()[1:]
	if opts.APIURL == "" {
		return nil, false, &ExitError{Code: 2, Message: "api-url must not be empty"}
	}
	return opts, false, nil
}

// App runs dashboard commands against one backend.
type App struct {
	cfg    *config.Config
	opts   *Options
	client *api.Client
	out    io.Writer
	logger *logger.Logger
}

// NewApp creates an app writing frames to out.
func NewApp(cfg *config.Config, opts *Options, out io.Writer, log *logger.Logger) *App {
	if opts.NoColor {
		color.NoColor = true
	}
	return &App{
		cfg:    cfg,
		opts:   opts,
		client: api.NewClientWithTimeout(opts.APIURL, opts.Timeout),
		out:    out,
		logger: log,
	}
}

// Run executes the selected command until it completes or ctx is done.
func (a *App) Run(ctx context.Context) error {
	log := a.logger.WithComponent("cli")
	log.Debug("running command", "command", a.opts.Command, "api_url", a.opts.APIURL)

	switch a.opts.Command {
	case "watch":
		return a.follow(ctx, memview.DashboardPage())
	case "status":
		if len(a.opts.Args) != 1 {
			return &ExitError{Code: 2, Message: "usage: status <execution-id>"}
		}
		return a.follow(ctx, memview.StatusPage(a.opts.Args[0]))
	case "execute":
		return a.execute(ctx, a.opts.Args)
	case "register":
		return a.register(ctx, a.opts.Args)
	case "builders":
		return a.builders(ctx)
	case "health":
		return a.health(ctx)
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", a.opts.Command)}
	}
}

func (a *App) newPage(doc *memview.Document) *dashboard.Page {
	return dashboard.NewPage(doc, a.client,
		dashboard.WithIntervals(dashboard.Intervals{
			Activity:   a.cfg.Dashboard.ActivityInterval,
			Executions: a.cfg.Dashboard.ExecutionsInterval,
			Status:     a.cfg.Dashboard.StatusInterval,
		}),
		dashboard.WithLocation(a.cfg.Dashboard.Location()),
		dashboard.WithLogger(a.logger.WithComponent("dashboard").Logger),
	)
}

// follow renders doc once, or keeps it current until ctx is done.
func (a *App) follow(ctx context.Context, doc *memview.Document) error {
	page := a.newPage(doc)
	screen := termview.NewScreen(a.out, doc)

	if a.opts.Once {
		page.Refresh(ctx)
		return screen.Render()
	}

	screen.Live = a.opts.Live
	if err := page.Start(ctx); err != nil {
		return err
	}
	defer page.Close()

	if err := screen.Render(); err != nil {
		return err
	}
	return screen.Follow(ctx, repaintInterval)
}

func (a *App) execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("execute", flag.ContinueOnError)
	fs.SetOutput(a.out)
	builderID := fs.String("builder", "", "ID of the builder to run.")
	backendName := fs.String("backend", "codex", "Execution backend.")
	payload := fs.String("payload", "", "JSON object passed to the backend.")
	if err := parseCommand(fs, args); err != nil {
		return err
	}

	doc := memview.DashboardPage()
	doc.Get(dashboard.SelBuilderSelect).SetValue(*builderID)
	doc.Get(dashboard.SelBackendSelect).SetValue(*backendName)
	doc.Get(dashboard.SelPayload).SetValue(*payload)

	page := a.newPage(doc)
	page.ExecuteForm.Submit(ctx)
	return a.report(doc, dashboard.SelExecuteNotification)
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.out)
	name := fs.String("name", "", "Builder name.")
	description := fs.String("description", "", "Builder description.")
	if err := parseCommand(fs, args); err != nil {
		return err
	}

	doc := memview.New()
	doc.Add(dashboard.SelActivityFeed)
	doc.Add(dashboard.SelBuilderName).SetValue(*name)
	doc.Add(dashboard.SelBuilderDescription).SetValue(*description)
	doc.Add(dashboard.SelBuilderNotification)

	page := a.newPage(doc)
	page.BuilderForm.Submit(ctx)
	return a.report(doc, dashboard.SelBuilderNotification)
}

func parseCommand(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, flag.ErrHelp):
		return &ExitError{Code: 0}
	default:
		return &ExitError{Code: 2, Message: err.Error()}
	}
}

// report renders the outcome of a form submission and turns a danger
// notification into exit code 1.
func (a *App) report(doc *memview.Document, notification string) error {
	if err := termview.NewScreen(a.out, doc).Render(); err != nil {
		return err
	}
	if strings.Contains(doc.Get(notification).Class(), dashboard.SeverityDanger) {
		return &ExitError{Code: 1}
	}
	return nil
}

func (a *App) builders(ctx context.Context) error {
	builders, err := a.client.ListBuilders(ctx)
	if err != nil {
		return fmt.Errorf("listing builders: %w", err)
	}

	bold := color.New(color.Bold)
	table := termview.Table{
		Headers: termview.TableRow{
			{Contents: "id", Color: bold},
			{Contents: "name", Color: bold},
			{Contents: "description", Color: bold},
			{Contents: "created", Color: bold},
		},
	}
	loc := a.cfg.Dashboard.Location()
	for _, b := range builders {
		table.Data = append(table.Data, termview.TableRow{
			{Contents: b.ID},
			{Contents: b.Name},
			{Contents: b.Description},
			{Contents: dashboard.FormatClock(b.CreatedAt, loc), Color: color.New(color.Faint)},
		})
	}
	return table.Render(a.out, true)
}

// health prints the backend's health report. An unhealthy backend exits 1.
func (a *App) health(ctx context.Context) error {
	report, err := a.client.Health(ctx)
	if report == nil {
		return fmt.Errorf("checking health: %w", err)
	}

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	bold := color.New(color.Bold)
	table := termview.Table{
		Headers: termview.TableRow{
			{Contents: "component", Color: bold},
			{Contents: "status", Color: bold},
			{Contents: "message", Color: bold},
		},
	}
	for _, name := range names {
		c := report.Components[name]
		table.Data = append(table.Data, termview.TableRow{
			{Contents: name},
			{Contents: c.Status, Color: healthColor(c.Status)},
			{Contents: c.Message},
		})
	}
	if err := table.Render(a.out, true); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%s %s\n", bold.Sprint("backend:"), healthColor(report.Status).Sprint(report.Status))

	if err != nil {
		a.logger.WithError(err).Debug("health check failed")
		return &ExitError{Code: 1}
	}
	return nil
}

func healthColor(status string) *color.Color {
	switch status {
	case "healthy":
		return color.New(color.FgGreen)
	case "degraded":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
