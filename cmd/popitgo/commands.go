package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/popitgo/client/internal/app"
	"github.com/popitgo/client/internal/auth"
	"github.com/popitgo/client/internal/export"
	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/service"
	"github.com/popitgo/client/internal/timeutil"
)

// loginTimeout bounds the wait for the browser to return
const loginTimeout = 5 * time.Minute

var errUsage = errors.New("invalid arguments")

// Input layouts accepted for times, tried in order. Values without a zone
// are read in the local zone.
var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseWhen(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range whenLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized time %q (use YYYY-MM-DD HH:MM)", errUsage, s)
}

func optionalWhen(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseWhen(s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func subcommand(args []string, name string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: %s needs a subcommand", errUsage, name)
	}
	return args[0], args[1:], nil
}

func table(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func local(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return timeutil.FormatDateTime(t.In(time.Local))
}

// ===== auth =====

func runLogin(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	provider := a.Config.Auth.DefaultProvider
	if len(args) > 0 {
		provider = args[0]
	}

	var err error
	var url string
	if provider == auth.ProviderGoogle {
		r, lerr := a.Auth.LoginWithGoogle(ctx)
		if r != nil {
			url = r.URL
		}
		err = lerr
	} else {
		r, lerr := a.Auth.Login(ctx, provider)
		if r != nil {
			url = r.URL
		}
		err = lerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Open this URL in your browser to sign in with %s:\n\n  %s\n\n", provider, url)

	waitCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	res, err := waitForCallback(waitCtx, a.Config.CallbackURL(), a.Logger)
	if err != nil {
		return err
	}
	if err := a.Auth.Complete(ctx, res.Code, res.State); err != nil {
		return err
	}
	return printUser(out, a.Auth.Snapshot())
}

func runLogout(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if err := a.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Signed out.")
	return nil
}

func runWhoami(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if err := a.Auth.Refresh(ctx); err != nil {
		return err
	}
	return printUser(out, a.Auth.Snapshot())
}

func printUser(out io.Writer, s auth.State) error {
	switch s.Status {
	case auth.StatusLoggedIn:
		name := s.User.FullName
		if name == "" {
			name = s.User.Email
		}
		fmt.Fprintf(out, "Signed in as %s (%s)\n", name, s.User.Role)
	case auth.StatusError:
		return errors.New(s.Error)
	default:
		fmt.Fprintln(out, "Not signed in.")
	}
	return nil
}

// ===== events =====

func runEvents(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	sub, rest, err := subcommand(args, "events")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		return eventsList(ctx, a, rest, out)
	case "add":
		return eventsAdd(ctx, a, rest, out)
	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("%w: events rm <id>", errUsage)
		}
		if err := a.EventStore.RemoveOne(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted event %s.\n", rest[0])
		return nil
	case "notify":
		if len(rest) != 1 {
			return fmt.Errorf("%w: events notify <id>", errUsage)
		}
		on, err := a.EventStore.ToggleNotification(ctx, rest[0])
		if err != nil {
			return err
		}
		if on {
			fmt.Fprintf(out, "Reminder on: %s, %s.\n", model.ReminderLabel(model.DefaultReminderMinutes), model.DefaultReminderType)
		} else {
			fmt.Fprintln(out, "Reminder off.")
		}
		return nil
	}
	return fmt.Errorf("%w: unknown events subcommand %q", errUsage, sub)
}

func eventsList(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("events list")
	category := fs.String("category", "", "category to list")
	organizer := fs.String("organizer", "", "organizer to list")
	search := fs.String("search", "", "text to find in title, description or organizer")
	from := fs.String("from", "", "earliest reservation opening")
	to := fs.String("to", "", "latest reservation opening")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	start, err := optionalWhen(*from)
	if err != nil {
		return err
	}
	end, err := optionalWhen(*to)
	if err != nil {
		return err
	}

	if err := a.EventStore.FetchAll(ctx, &model.EventFilter{Category: *category, Organizer: *organizer}); err != nil {
		return err
	}
	a.EventStore.SetFilter(model.EventFilter{SearchQuery: *search, StartDate: start, EndDate: end})

	tw := table(out)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tOPENS\t\tREMINDER")
	for _, e := range a.EventStore.Visible() {
		label := ""
		if e.Category != nil {
			label = model.CategoryLabel(*e.Category)
		}
		reminder := ""
		if e.HasNotification {
			reminder = "on"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Title, label, local(e.ReservationStart),
			timeutil.TimeFromNow(e.ReservationStart, nil), reminder)
	}
	return tw.Flush()
}

func eventsAdd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("events add")
	title := fs.String("title", "", "event title")
	start := fs.String("start", "", "reservation opening time")
	end := fs.String("end", "", "reservation closing time")
	category := fs.String("category", "", "category")
	organizer := fs.String("organizer", "", "organizer")
	description := fs.String("description", "", "description")
	platform := fs.String("platform", "", "reservation platform")
	link := fs.String("link", "", "reservation link")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *title == "" || *start == "" {
		return fmt.Errorf("%w: events add needs -title and -start", errUsage)
	}
	opens, err := parseWhen(*start, time.Local)
	if err != nil {
		return err
	}
	closes, err := optionalWhen(*end)
	if err != nil {
		return err
	}

	ev, err := a.EventStore.Add(ctx, model.EventInput{
		Title:               *title,
		Description:         optional(*description),
		Organizer:           optional(*organizer),
		Category:            optional(*category),
		ReservationStart:    opens,
		ReservationEnd:      closes,
		ReservationPlatform: optional(*platform),
		ReservationLink:     optional(*link),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added event %s: %s (opens %s)\n", ev.ID, ev.Title, local(ev.ReservationStart))
	return nil
}

// ===== notes =====

func runNotes(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	sub, rest, err := subcommand(args, "notes")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		fs := newFlags("notes list")
		event := fs.String("event", "", "event id")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if err := a.NoteStore.FetchAll(ctx, *event); err != nil {
			return err
		}
		tw := table(out)
		fmt.Fprintln(tw, "ID\tEVENT\tUPDATED\tCONTENT")
		for _, n := range a.NoteStore.Snapshot().Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.EventID, local(n.UpdatedAt), n.Content)
		}
		return tw.Flush()
	case "save":
		if len(rest) < 2 {
			return fmt.Errorf("%w: notes save <event-id> <text>", errUsage)
		}
		n, err := a.NoteStore.SaveForEvent(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved note %s for event %s.\n", n.ID, n.EventID)
		return nil
	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("%w: notes rm <id>", errUsage)
		}
		if err := a.NoteStore.RemoveOne(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted note %s.\n", rest[0])
		return nil
	}
	return fmt.Errorf("%w: unknown notes subcommand %q", errUsage, sub)
}

// ===== visits =====

func visitFilter(fs *flag.FlagSet) func() (*model.VisitReservationFilter, error) {
	status := fs.String("status", "", "pending, confirmed, cancelled or completed")
	activity := fs.String("activity", "", "booth activity id")
	from := fs.String("from", "", "earliest visit time")
	to := fs.String("to", "", "latest visit time")
	return func() (*model.VisitReservationFilter, error) {
		f := &model.VisitReservationFilter{BoothActivityID: *activity, Status: model.VisitStatus(*status)}
		if f.Status != "" && !f.Status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", errUsage, *status)
		}
		var err error
		if f.StartDate, err = optionalWhen(*from); err != nil {
			return nil, err
		}
		if f.EndDate, err = optionalWhen(*to); err != nil {
			return nil, err
		}
		return f, nil
	}
}

func runVisits(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	sub, rest, err := subcommand(args, "visits")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		fs := newFlags("visits list")
		filter := visitFilter(fs)
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		f, err := filter()
		if err != nil {
			return err
		}
		if err := a.VisitStore.FetchAll(ctx, f); err != nil {
			return err
		}
		tw := table(out)
		fmt.Fprintln(tw, "ID\tVISITOR\tACTIVITY\tVENUE\tVISIT\tSTATUS")
		for _, v := range a.VisitStore.Snapshot().Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				v.ID, v.VisitorName, v.ActivityTitle, v.VenueName, local(v.VisitDatetime), v.Status)
		}
		return tw.Flush()
	case "status":
		if len(rest) != 2 {
			return fmt.Errorf("%w: visits status <id> <status>", errUsage)
		}
		if err := a.VisitStore.FetchAll(ctx, nil); err != nil {
			return err
		}
		v, err := a.VisitStore.UpdateStatus(ctx, rest[0], model.VisitStatus(rest[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Reservation %s is now %s.\n", v.ID, v.Status)
		return nil
	case "export":
		fs := newFlags("visits export")
		filter := visitFilter(fs)
		path := fs.String("o", "reservations.xlsx", "output file, - for stdout")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		f, err := filter()
		if err != nil {
			return err
		}
		if err := a.VisitStore.FetchAll(ctx, f); err != nil {
			return err
		}
		return exportVisits(*path, a.VisitStore.Snapshot().Items, out)
	}
	return fmt.Errorf("%w: unknown visits subcommand %q", errUsage, sub)
}

func exportVisits(path string, visits []model.VisitReservation, out io.Writer) error {
	if path == "-" {
		return export.WriteReservations(out, visits, time.Local)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteReservations(f, visits, time.Local); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	fmt.Fprintf(out, "Exported %d reservations to %s.\n", len(visits), path)
	return nil
}

// ===== inbox =====

func runInbox(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	sub, rest, err := subcommand(args, "inbox")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		fs := newFlags("inbox list")
		unread := fs.Bool("unread", false, "only unread alerts")
		limit := fs.Int("limit", 0, "maximum number of alerts")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		if err := a.InboxStore.Fetch(ctx, &service.InboxQuery{Limit: *limit, UnreadOnly: *unread}); err != nil {
			return err
		}
		tw := table(out)
		fmt.Fprintln(tw, "\tID\tRECEIVED\tTITLE\tMESSAGE")
		for _, n := range a.InboxStore.Snapshot().Items {
			mark := ""
			if !n.IsRead() {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, n.ID, local(n.CreatedAt), n.Title, n.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d unread\n", a.InboxStore.UnreadCount())
		return nil
	case "read":
		if len(rest) != 1 {
			return fmt.Errorf("%w: inbox read <id|all>", errUsage)
		}
		if rest[0] == "all" {
			return a.InboxStore.MarkAllRead(ctx)
		}
		return a.InboxStore.MarkRead(ctx, rest[0])
	}
	return fmt.Errorf("%w: unknown inbox subcommand %q", errUsage, sub)
}
