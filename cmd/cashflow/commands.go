package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"cashflow/internal/analytics"
	"cashflow/internal/app"
	"cashflow/internal/core"
	"cashflow/internal/export"
	applog "cashflow/internal/log"
	"cashflow/internal/remote"
	"cashflow/internal/services"
	"cashflow/internal/storage"
)

const usage = `usage: cashflow <command> [flags]

commands:
  register    -name NAME -email EMAIL -password PASSWORD
  login       -email EMAIL -password PASSWORD
  logout
  whoami
  list        [-type all|income|expense] [-q TEXT]
  add         -type income|expense -amount 50.000 -category NAME [-date YYYY-MM-DD] [-desc TEXT] [-notes TEXT]
  edit        -id ID [-amount N] [-category NAME] [-date YYYY-MM-DD] [-desc TEXT] [-notes TEXT]
  delete      -id ID
  revert      -id ID
  pending
  refresh
  dashboard
  export      [-o FILE]
  categories  [-type income|expense]
  theme       [toggle]
  shell       interactive session on one store
`

type env struct {
	gateway remote.Gateway
	prefs   storage.Prefs
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  *applog.Logger
	now     func() time.Time
}

type command func(ctx context.Context, a *app.App, e env, args []string) error

var (
	errUsage = errors.New("invalid usage")
	// errReported marks failures the notifier already printed.
	errReported = errors.New("reported")
)

var commands map[string]command

func init() {
	commands = map[string]command{
		"register":   cmdRegister,
		"login":      cmdLogin,
		"logout":     cmdLogout,
		"whoami":     cmdWhoami,
		"list":       cmdList,
		"add":        cmdAdd,
		"edit":       cmdEdit,
		"delete":     cmdDelete,
		"revert":     cmdRevert,
		"pending":    cmdPending,
		"refresh":    cmdRefresh,
		"dashboard":  cmdDashboard,
		"export":     cmdExport,
		"categories": cmdCategories,
		"theme":      cmdTheme,
		"shell":      cmdShell,
	}
}

// run executes one command and returns the process exit code. Background
// remote writes are awaited before it returns.
func run(ctx context.Context, args []string, e env) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(e.stdout, usage)
		return 0
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.stdin == nil {
		e.stdin = os.Stdin
	}
	e.stderr = &lockedWriter{w: e.stderr}

	a := app.New(e.gateway, e.prefs,
		app.WithNotifier(noticePrinter(e.stderr)),
		app.WithClock(e.now),
		app.WithLogger(e.logger))
	if err := a.Restore(ctx); err != nil {
		fmt.Fprintln(e.stderr, "error:", err)
		return 1
	}

	err := dispatch(ctx, a, e, args)
	a.Wait()
	return exitCode(e.stderr, err)
}

func dispatch(ctx context.Context, a *app.App, e env, args []string) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(ctx, a, e, args[1:])
}

func exitCode(stderr io.Writer, err error) int {
	var ve *services.ValidationError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return 2
	case errors.Is(err, errReported), errors.As(err, &ve):
		return 1
	case errors.Is(err, services.ErrNoSession):
		fmt.Fprintln(stderr, "error: not logged in, run `cashflow login` first")
		return 1
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}

func noticePrinter(w io.Writer) services.Notifier {
	labels := map[services.NoticeLevel]string{
		services.NoticeSuccess: "ok",
		services.NoticeInfo:    "info",
		services.NoticeWarning: "warn",
		services.NoticeError:   "error",
	}
	return func(n services.Notice) {
		if n.Detail != "" {
			fmt.Fprintf(w, "[%s] %s (%s)\n", labels[n.Level], n.Message, n.Detail)
			return
		}
		fmt.Fprintf(w, "[%s] %s\n", labels[n.Level], n.Message)
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func newFlagSet(name string, e env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}

func cmdRegister(ctx context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("register", e)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.Register(ctx, *name, *email, *password); err != nil {
		return errReported
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("login", e)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	u, err := a.Login(ctx, *email, *password)
	if err != nil {
		var se *remote.SyncError
		if errors.As(err, &se) {
			return errReported
		}
		return err
	}
	fmt.Fprintf(e.stdout, "Logged in as %s <%s>, %d transactions\n", u.Name, u.Email, len(a.Transactions()))
	return nil
}

func cmdLogout(ctx context.Context, a *app.App, e env, args []string) error {
	if err := parseFlags(newFlagSet("logout", e), args); err != nil {
		return err
	}
	return a.Logout(ctx)
}

func cmdWhoami(_ context.Context, a *app.App, e env, args []string) error {
	if err := parseFlags(newFlagSet("whoami", e), args); err != nil {
		return err
	}
	u := a.User()
	if u == nil {
		return services.ErrNoSession
	}
	fmt.Fprintf(e.stdout, "%s <%s>\n", u.Name, u.Email)
	return nil
}

func cmdList(_ context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("list", e)
	kind := fs.String("type", "all", "all, income or expense")
	search := fs.String("q", "", "match description or category")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if a.User() == nil {
		return services.ErrNoSession
	}
	txs := analytics.Filter(a.Transactions(), analytics.ParseFilterKind(*kind), *search)
	if len(txs) == 0 {
		fmt.Fprintln(e.stdout, "Belum ada transaksi")
		return nil
	}
	return renderTransactions(e.stdout, txs)
}

func cmdAdd(ctx context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("add", e)
	typ := fs.String("type", "expense", "income or expense")
	d := draftFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	t, err := core.ParseTxType(*typ)
	if err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	draft := d.apply(services.Draft{Type: t}, nil)
	tx, err := a.Submit(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d %s %s\n", tx.ID, tx.Type, core.FormatRupiah(tx.Amount.Amount, true))
	return nil
}

func cmdEdit(ctx context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("edit", e)
	id := fs.Int64("id", 0, "transaction id")
	d := draftFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}
	draft, err := a.Edit(*id)
	if err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	tx, err := a.Submit(ctx, d.apply(draft, set))
	if err != nil {
		a.CancelEdit()
		return err
	}
	fmt.Fprintf(e.stdout, "%d %s %s\n", tx.ID, tx.Type, core.FormatRupiah(tx.Amount.Amount, true))
	return nil
}

func cmdDelete(ctx context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("delete", e)
	id := fs.Int64("id", 0, "transaction id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}
	return a.Delete(ctx, *id)
}

func cmdRevert(_ context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("revert", e)
	id := fs.Int64("id", 0, "transaction id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return a.Revert(*id)
}

func cmdPending(_ context.Context, a *app.App, e env, args []string) error {
	if err := parseFlags(newFlagSet("pending", e), args); err != nil {
		return err
	}
	a.Wait()
	return renderPending(e.stdout, a.Pending())
}

func cmdRefresh(ctx context.Context, a *app.App, e env, args []string) error {
	if err := parseFlags(newFlagSet("refresh", e), args); err != nil {
		return err
	}
	if err := a.Refresh(ctx); err != nil {
		if remote.KindOf(err) != 0 {
			return errReported
		}
		return err
	}
	fmt.Fprintf(e.stdout, "%d transactions\n", len(a.Transactions()))
	return nil
}

func cmdDashboard(_ context.Context, a *app.App, e env, args []string) error {
	if err := parseFlags(newFlagSet("dashboard", e), args); err != nil {
		return err
	}
	if a.User() == nil {
		return services.ErrNoSession
	}
	return renderDashboard(e.stdout, a.View(e.now()))
}

func cmdExport(_ context.Context, a *app.App, e env, args []string) error {
	fs := newFlagSet("export", e)
	out := fs.String("o", "", "output file, - for stdout (default cashflow_<date>.csv)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if a.User() == nil {
		return services.ErrNoSession
	}
	if *out == "-" {
		return a.ExportCSV(e.stdout)
	}
	name := *out
	if name == "" {
		name = export.FileName(e.now())
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := a.ExportCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	fmt.Fprintln(e.stdout, name)
	return nil
}

func cmdCategories(_ context.Context, _ *app.App, e env, args []string) error {
	fs := newFlagSet("categories", e)
	typ := fs.String("type", "expense", "income or expense")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	t, err := core.ParseTxType(*typ)
	if err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	for _, c := range core.Categories(t) {
		fmt.Fprintln(e.stdout, c)
	}
	return nil
}

func cmdTheme(ctx context.Context, a *app.App, e env, args []string) error {
	switch {
	case len(args) == 0:
		fmt.Fprintln(e.stdout, a.Theme())
		return nil
	case len(args) == 1 && args[0] == "toggle":
		t, err := a.ToggleTheme(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, t)
		return nil
	default:
		return fmt.Errorf("%w: theme takes no argument or `toggle`", errUsage)
	}
}

// cmdShell keeps one store alive across commands, so pending writes and
// revert work between them.
func cmdShell(ctx context.Context, a *app.App, e env, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: shell takes no arguments", errUsage)
	}
	sc := bufio.NewScanner(e.stdin)
	for {
		fmt.Fprint(e.stdout, "cashflow> ")
		if !sc.Scan() {
			fmt.Fprintln(e.stdout)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line, err := splitArgs(sc.Text())
		if err != nil {
			fmt.Fprintln(e.stderr, "error:", err)
			continue
		}
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprint(e.stdout, usage)
			continue
		case "shell":
			fmt.Fprintln(e.stderr, "error: already in a shell")
			continue
		}
		err = dispatch(ctx, a, e, line)
		if err != nil && !errors.Is(err, flag.ErrHelp) {
			exitCode(e.stderr, err)
		}
	}
}

// splitArgs splits a shell line on spaces, keeping double quoted runs
// together.
func splitArgs(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if started {
		out = append(out, cur.String())
	}
	return out, nil
}

type draftInput struct {
	amount, category, date, desc, notes *string
}

func draftFlags(fs *flag.FlagSet) draftInput {
	return draftInput{
		amount:   fs.String("amount", "", "amount in Rupiah, separators allowed"),
		category: fs.String("category", "", "category name"),
		date:     fs.String("date", "", "day as YYYY-MM-DD (default today)"),
		desc:     fs.String("desc", "", "description (default the category)"),
		notes:    fs.String("notes", "", "free notes"),
	}
}

// apply copies the flag values onto d. With set non-nil only flags named
// in it are copied.
func (in draftInput) apply(d services.Draft, set map[string]bool) services.Draft {
	take := func(name string) bool { return set == nil || set[name] }
	if take("amount") {
		d.Amount = *in.amount
	}
	if take("category") {
		d.Category = *in.category
	}
	if take("date") {
		d.Day = *in.date
	}
	if take("desc") {
		d.Description = *in.desc
	}
	if take("notes") {
		d.Notes = *in.notes
	}
	return d
}
