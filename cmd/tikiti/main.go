package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/tikitihub/tikiti-go/internal/app"
	"github.com/tikitihub/tikiti-go/internal/config"
	"github.com/tikitihub/tikiti-go/internal/domain"
	"github.com/tikitihub/tikiti-go/internal/logger"
	"github.com/tikitihub/tikiti-go/internal/store/ui"
)

const usage = `usage: tikiti <command> [flags]

commands:
  events      list events (supports --search, --category, --location, --sort)
  event       show a single event by id
  login       log in with --email and --password
  register    create an account
  whoami      show the current session
  profile     update profile fields (--name, --phone, --county)
  buy         purchase tickets for an event
  logout      end the current session
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(cfg, logger.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	a.Hydrate(ctx)
	a.Auth.CheckAuth()

	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "events":
		return cmdEvents(ctx, a, args)
	case "event":
		return cmdEvent(ctx, a, args)
	case "login":
		return cmdLogin(ctx, a, args)
	case "register":
		return cmdRegister(ctx, a, args)
	case "whoami":
		return cmdWhoami(a)
	case "profile":
		return cmdProfile(ctx, a, args)
	case "buy":
		return cmdBuy(ctx, a, args)
	case "logout":
		a.Auth.Logout()
		fmt.Println("logged out")
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdEvents(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	search := fs.String("search", "", "substring search over name, location and description")
	category := fs.String("category", domain.FilterAll, "exact category filter")
	location := fs.String("location", domain.FilterAll, "substring location filter")
	sortBy := fs.String("sort", domain.SortDateAsc, "date-asc | date-desc | price-asc | price-desc | availability")
	force := fs.Bool("refresh", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.Catalog.FetchEvents(ctx, *force); err != nil {
		// Stale-but-available: show what we have alongside the error.
		if msg := a.Catalog.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
	}

	a.Catalog.SetSearchQuery(*search)
	a.Catalog.SetSelectedCategory(*category)
	a.Catalog.SetSelectedLocation(*location)
	a.Catalog.SetSortBy(*sortBy)

	events := a.Catalog.GetFilteredEvents()
	if len(events) == 0 {
		fmt.Println("no events match")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATE\tLOCATION\tPRICE (KES)\tAVAILABLE")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\t%d/%d\n",
			e.ID, e.Name, e.EventDate.Format("2006-01-02 15:04"),
			e.Location, e.PriceKES, e.AvailableTickets, e.TotalTickets)
	}
	return w.Flush()
}

func cmdEvent(ctx context.Context, a *app.App, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tikiti event <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid event id %q", args[0])
	}

	event := a.Catalog.FetchEventByID(ctx, id)
	if event == nil {
		return fmt.Errorf("event %d not found", id)
	}
	fmt.Printf("%s\n%s\n\nCategory: %s\nLocation: %s\nDate: %s\nPrice: KES %.0f\nTickets: %d of %d available\n",
		event.Name, event.Description, event.Category, event.Location,
		event.EventDate.Format(time.RFC1123), event.PriceKES,
		event.AvailableTickets, event.TotalTickets)
	return nil
}

func cmdLogin(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.SetRoute(app.RouteLogin)
	defer a.SetRoute(app.RouteHome)

	res := a.Auth.Login(ctx, *email, *password)
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	user := a.Auth.User()
	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func cmdRegister(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	phone := fs.String("phone", "", "phone number")
	county := fs.String("county", "", "county of residence")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.SetRoute(app.RouteRegister)
	defer a.SetRoute(app.RouteHome)

	res := a.Auth.Register(ctx, *name, *email, *password, *phone, *county)
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	fmt.Println("registered; log in with `tikiti login`")
	return nil
}

func cmdWhoami(a *app.App) error {
	if !a.Auth.CheckAuth() {
		fmt.Println("not logged in")
		return nil
	}
	user := a.Auth.User()
	fmt.Printf("%s <%s>\nphone: %s\ncounty: %s\nrole: %s\nsession expires: %s\n",
		user.Name, user.Email, user.PhoneNumber, user.County, user.Role,
		a.Auth.TokenExpiration().Format(time.RFC1123))
	return nil
}

func cmdProfile(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "new full name")
	phone := fs.String("phone", "", "new phone number")
	county := fs.String("county", "", "new county")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !a.Auth.CheckAuth() {
		return fmt.Errorf("not logged in")
	}

	var patch domain.ProfileUpdate
	if *name != "" {
		patch.Name = name
	}
	if *phone != "" {
		patch.PhoneNumber = phone
	}
	if *county != "" {
		patch.County = county
	}

	user, err := a.Auth.UpdateProfile(ctx, patch)
	if err != nil {
		a.UI.ShowError(a.Auth.Error(), ui.DefaultToastDuration)
		return err
	}
	fmt.Printf("profile updated: %s, %s, %s\n", user.Name, user.PhoneNumber, user.County)
	return nil
}

func cmdBuy(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ExitOnError)
	eventID := fs.Int("event", 0, "event id")
	name := fs.String("name", "", "buyer name")
	email := fs.String("email", "", "buyer email")
	phone := fs.String("phone", "", "buyer phone number")
	quantity := fs.Int("quantity", 1, "number of tickets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := a.Catalog.Purchase(ctx, domain.PurchaseRequest{
		EventID:     *eventID,
		UserName:    *name,
		UserEmail:   *email,
		PhoneNumber: *phone,
		Quantity:    *quantity,
	})
	if err != nil {
		return err
	}

	fmt.Printf("ticket confirmed: %s\n%s at %s on %s\n%d ticket(s), KES %.0f total\n",
		conf.TicketCode, conf.EventName, conf.EventLocation,
		conf.EventDate.Format(time.RFC1123), conf.Quantity, conf.TotalPrice)
	return nil
}
