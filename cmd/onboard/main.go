// onboard runs the receptionist onboarding wizard in a terminal against a
// running API. Redirects (checkout, calendar, dashboard) are printed and end
// the process; run it again with --landing-url set to the URL the browser
// came back to, and the wizard resumes from the durable store.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smallbiznis/receptionist/internal/activation"
	"github.com/smallbiznis/receptionist/internal/apiclient"
	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/durable"
	"github.com/smallbiznis/receptionist/internal/identity"
	"github.com/smallbiznis/receptionist/internal/notify"
	"github.com/smallbiznis/receptionist/internal/onboarding"
)

type options struct {
	api          string
	token        string
	email        string
	jwtSecret    string
	dashboardURL string
	storePath    string
	redisAddr    string
	session      string
	landingURL   string
	timeout      time.Duration
	verbose      bool
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("onboard", pflag.ContinueOnError)
	flagSet.StringVar(&opts.api, "api", "http://localhost:8080", "receptionist API base URL")
	flagSet.StringVar(&opts.token, "token", os.Getenv("RECEPTIONIST_TOKEN"), "dashboard bearer token")
	flagSet.StringVar(&opts.email, "email", "", "issue a token for this owner email (requires --jwt-secret)")
	flagSet.StringVar(&opts.jwtSecret, "jwt-secret", os.Getenv("AUTH_JWT_SECRET"), "secret used to sign an issued token")
	flagSet.StringVar(&opts.dashboardURL, "dashboard-url", "http://localhost:3000/app", "where a finished wizard goes")
	flagSet.StringVar(&opts.storePath, "store", ".onboarding.cbor", "durable store file")
	flagSet.StringVar(&opts.redisAddr, "redis-addr", "", "keep wizard progress in Redis instead of a file")
	flagSet.StringVar(&opts.session, "session", "", "Redis session name (defaults to the owner email)")
	flagSet.StringVar(&opts.landingURL, "landing-url", "", "URL the browser returned to, with its query signals")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (0 waits indefinitely)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	token, err := resolveToken(opts)
	if err != nil {
		return err
	}
	client, err := apiclient.New(apiclient.Config{BaseURL: opts.api, Token: token, Timeout: opts.timeout}, log)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore()

	landing := opts.landingURL
	if landing == "" {
		landing = opts.dashboardURL
	}
	nav := &printNavigator{out: out, done: make(chan struct{})}
	ctx := context.Background()
	ctrl, err := onboarding.NewController(ctx, onboarding.Params{
		Backend:      client,
		Store:        store,
		Navigator:    nav,
		Clock:        clock.SystemClock{},
		Log:          log,
		LandingURL:   landing,
		DashboardURL: opts.dashboardURL,
	})
	if err != nil {
		return err
	}

	w := &wizard{ctrl: ctrl, client: client, log: log, out: out, nav: nav}
	return w.loop(ctx, in)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func resolveToken(opts options) (string, error) {
	if opts.token != "" {
		return opts.token, nil
	}
	if opts.email == "" {
		return "", errors.New("--token or --email is required")
	}
	if opts.jwtSecret == "" {
		return "", errors.New("--email needs --jwt-secret")
	}
	return identity.NewVerifier(opts.jwtSecret).Issue(identity.Identity{Email: opts.email}, time.Hour)
}

func openStore(opts options) (onboarding.Store, func(), error) {
	if opts.redisAddr == "" {
		store, err := durable.NewFile(opts.storePath)
		return store, func() {}, err
	}
	session := opts.session
	if session == "" {
		session = opts.email
	}
	rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
	store, err := durable.NewRedis(rdb, session, 24*time.Hour)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return store, func() { _ = rdb.Close() }, nil
}

// printNavigator stands in for the browser: a navigation prints the target
// and ends the session.
type printNavigator struct {
	out  io.Writer
	once sync.Once
	done chan struct{}
}

func (n *printNavigator) Navigate(url string) {
	fmt.Fprintf(n.out, "open %s\n", url)
	n.once.Do(func() { close(n.done) })
}

func (n *printNavigator) ReplaceURL(url string) {
	fmt.Fprintf(n.out, "location %s\n", url)
}

func (n *printNavigator) left() bool {
	select {
	case <-n.done:
		return true
	default:
		return false
	}
}

type wizard struct {
	ctrl   *onboarding.Controller
	client *apiclient.Client
	log    *zap.Logger
	out    io.Writer
	nav    *printNavigator
}

const help = `commands:
  subscribe                      start checkout
  name|industry|description TEXT edit the business profile
  search [AREA_CODE]             find numbers
  select N|+E164                 choose a number
  release                        release the reserved number
  greeting STYLE                 professional, friendly or casual
  hours TEXT | services TEXT     persona details
  faq QUESTION | ANSWER          add an FAQ
  timezone ZONE                  IANA zone
  next | back | submit           move through the steps
  calendar                       connect Google Calendar
  receptionist on|off            pause or resume call answering
  status | help | quit`

func (w *wizard) loop(ctx context.Context, in io.Reader) error {
	w.render()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := w.exec(ctx, cmd, arg); err != nil {
			fmt.Fprintf(w.out, "%v\n", err)
			continue
		}
		w.ctrl.Wait()
		if w.nav.left() {
			return nil
		}
		w.render()
	}
}

func (w *wizard) exec(ctx context.Context, cmd, arg string) error {
	s := w.ctrl.Session()
	dispatch := func(ev onboarding.Event) error {
		w.ctrl.Dispatch(ctx, ev)
		return nil
	}

	switch cmd {
	case "", "status":
		return nil
	case "help":
		fmt.Fprintln(w.out, help)
		return nil
	case "subscribe":
		return dispatch(onboarding.Subscribe{})
	case "next":
		return dispatch(onboarding.Next{})
	case "back":
		return dispatch(onboarding.Back{})
	case "submit":
		return dispatch(onboarding.Submit{})
	case "calendar":
		return dispatch(onboarding.ConnectCalendar{})
	case "release":
		return dispatch(onboarding.Release{})
	case "search":
		return dispatch(onboarding.Search{AreaCode: arg})
	case "timezone":
		return dispatch(onboarding.SetTimezone{Timezone: arg})
	case "name", "industry", "description":
		p := s.Profile
		switch cmd {
		case "name":
			p.Name = arg
		case "industry":
			p.Industry = arg
		default:
			p.Description = arg
		}
		return dispatch(onboarding.EditProfile{Profile: p})
	case "greeting", "hours", "services", "faq":
		p := s.Persona
		p.FAQs = append([]onboarding.FAQ(nil), p.FAQs...)
		switch cmd {
		case "greeting":
			p.GreetingStyle = onboarding.GreetingStyle(strings.ToLower(arg))
		case "hours":
			p.BusinessHours = arg
		case "services":
			p.Services = arg
		default:
			q, a, ok := strings.Cut(arg, "|")
			if !ok {
				return errors.New("usage: faq QUESTION | ANSWER")
			}
			p.FAQs = append(p.FAQs, onboarding.FAQ{Question: strings.TrimSpace(q), Answer: strings.TrimSpace(a)})
		}
		return dispatch(onboarding.EditPersona{Persona: p})
	case "select":
		number := arg
		if i, err := strconv.Atoi(arg); err == nil && !strings.HasPrefix(arg, "+") {
			if i < 1 || i > len(s.Candidates) {
				return fmt.Errorf("no candidate %d", i)
			}
			number = s.Candidates[i-1].PhoneNumber
		}
		return dispatch(onboarding.SelectNumber{Number: number})
	case "receptionist":
		return w.toggle(ctx, arg)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (w *wizard) toggle(ctx context.Context, arg string) error {
	var desired bool
	switch arg {
	case "on":
		desired = true
	case "off":
	default:
		return errors.New("usage: receptionist on|off")
	}
	center := notify.NewCenter(clock.SystemClock{}, 0)
	t := activation.NewToggle(w.client, center, w.log)
	if err := t.Load(ctx); err != nil {
		return err
	}
	if err := t.Set(ctx, desired); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "receptionist %s\n", t.Display())
	return nil
}

func (w *wizard) render() {
	s := w.ctrl.Session()
	fmt.Fprintf(w.out, "\n[%d/5] %s\n", int(s.Step())+1, s.Step())
	if s.BusinessID != "" {
		fmt.Fprintf(w.out, "  business  %s\n", s.BusinessID)
	}
	switch s.Step() {
	case onboarding.StepSubscription:
		if s.PaymentConfirmed {
			fmt.Fprintln(w.out, "  subscription active, type next")
		} else {
			fmt.Fprintln(w.out, "  type subscribe to start checkout")
		}
	case onboarding.StepBusinessProfile:
		fmt.Fprintf(w.out, "  name %q industry %q\n", s.Profile.Name, s.Profile.Industry)
	case onboarding.StepPhoneNumber:
		if s.ReservedNumber != "" {
			fmt.Fprintf(w.out, "  reserved  %s\n", s.ReservedNumber)
		}
		for i, c := range s.Candidates {
			mark := " "
			if c.PhoneNumber == s.Selected {
				mark = "*"
			}
			fmt.Fprintf(w.out, "  %s %d. %s %s %s\n", mark, i+1, c.FriendlyName, c.Locality, c.Region)
		}
	case onboarding.StepPersona:
		fmt.Fprintf(w.out, "  greeting %s, %d faqs, timezone %s\n", s.Persona.GreetingStyle, len(s.Persona.FAQs), s.Timezone)
	case onboarding.StepFinalize:
		fmt.Fprintln(w.out, "  type submit to finish or calendar to connect Google Calendar")
	}
	for field, msg := range s.FieldErrors {
		fmt.Fprintf(w.out, "  ! %s: %s\n", field, msg)
	}
	if s.Failure != nil && s.Failure.Kind != onboarding.FailureValidation {
		fmt.Fprintf(w.out, "  ! %s\n", s.Failure.Message)
	}
	for _, n := range w.ctrl.Notifications() {
		if n.Details != "" {
			fmt.Fprintf(w.out, "  (%s) %s: %s\n", n.Kind, n.Message, n.Details)
			continue
		}
		fmt.Fprintf(w.out, "  (%s) %s\n", n.Kind, n.Message)
	}
}
