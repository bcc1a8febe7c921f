// Package app owns the dashboard state: the session, the theme, the
// transaction store and the reconciler that keeps it in step with the
// remote API. Presentation adapters (the CLI) only talk to App.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cashflow/internal/analytics"
	"cashflow/internal/core"
	"cashflow/internal/export"
	"cashflow/internal/ledger"
	applog "cashflow/internal/log"
	"cashflow/internal/remote"
	"cashflow/internal/services"
	"cashflow/internal/storage"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	MsgRegistered = "Pendaftaran berhasil! Silakan login."
	msgWelcome    = "Selamat datang, %s!"
)

var ErrNotFound = errors.New("transaction not found")

// View is everything a renderer needs for one frame.
type View struct {
	User      *core.User
	Theme     Theme
	EditingID int64
	Dashboard analytics.Dashboard
	Pending   []services.PendingSync
}

type App struct {
	gateway remote.Gateway
	prefs   storage.Prefs
	store   *ledger.Store
	rec     *services.Reconciler
	logger  *applog.Logger
	notify  services.Notifier
	now     services.Clock

	mu      sync.RWMutex
	user    *core.User
	theme   Theme
	editing int64
}

type Option func(*App)

func WithNotifier(n services.Notifier) Option { return func(a *App) { a.notify = n } }
func WithClock(c services.Clock) Option       { return func(a *App) { a.now = c } }
func WithLogger(l *applog.Logger) Option      { return func(a *App) { a.logger = l } }

// New wires a signed-out App. Call Restore to pick up a saved session.
func New(gateway remote.Gateway, prefs storage.Prefs, opts ...Option) *App {
	a := &App{
		gateway: gateway,
		prefs:   prefs,
		store:   ledger.New(""),
		notify:  func(services.Notice) {},
		now:     time.Now,
		theme:   ThemeLight,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentApp})
	}
	a.rec = services.NewReconciler(gateway, a.store,
		services.WithClock(a.now),
		services.WithNotifier(a.notify),
		services.WithLogger(a.logger.WithComponent(applog.ComponentSync)))
	return a
}

// Restore loads the saved theme and session. A saved session is refreshed
// from the remote store; a failed refresh is reported through the notifier
// and leaves the store empty.
func (a *App) Restore(ctx context.Context) error {
	theme, ok, err := a.prefs.Get(ctx, storage.KeyTheme)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}
	a.mu.Lock()
	if ok && Theme(theme) == ThemeDark {
		a.theme = ThemeDark
	} else {
		a.theme = ThemeLight
	}
	a.mu.Unlock()

	raw, ok, err := a.prefs.Get(ctx, storage.KeyUser)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil
	}
	var u core.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || strings.TrimSpace(u.Email) == "" {
		a.logger.WarnContext(ctx, "Dropping unreadable saved session", applog.FieldError, err)
		return a.prefs.Delete(ctx, storage.KeyUser)
	}

	a.startSession(u)
	_ = a.rec.Refresh(ctx)
	return nil
}

// Login authenticates, saves the session and loads its transactions.
func (a *App) Login(ctx context.Context, email, password string) (core.User, error) {
	res, err := a.gateway.Authenticate(ctx, remote.ActionLogin, remote.Credentials{Email: email, Password: password})
	if err != nil {
		a.logger.WarnContext(ctx, "Login failed", applog.FieldOperation, applog.OpLogin, applog.FieldError, err)
		a.notify(services.Notice{Level: services.NoticeError, Message: remote.UserMessage(err)})
		return core.User{}, err
	}

	if res.User == nil {
		return core.User{}, errors.New("login answered without a user")
	}
	u := *res.User
	b, err := json.Marshal(u)
	if err != nil {
		return core.User{}, fmt.Errorf("encode session: %w", err)
	}
	if err := a.prefs.Set(ctx, storage.KeyUser, string(b)); err != nil {
		return core.User{}, fmt.Errorf("save session: %w", err)
	}

	a.startSession(u)
	a.logger.InfoContext(ctx, "User logged in", applog.FieldOwner, u.Email)
	a.notify(services.Notice{Level: services.NoticeSuccess, Message: fmt.Sprintf(msgWelcome, u.Name)})
	_ = a.rec.Refresh(ctx)
	return u, nil
}

// Register creates an account. It does not sign in.
func (a *App) Register(ctx context.Context, name, email, password string) error {
	_, err := a.gateway.Authenticate(ctx, remote.ActionRegister, remote.Credentials{Name: name, Email: email, Password: password})
	if err != nil {
		a.logger.WarnContext(ctx, "Registration failed", applog.FieldOperation, applog.OpRegister, applog.FieldError, err)
		a.notify(services.Notice{Level: services.NoticeError, Message: remote.UserMessage(err)})
		return err
	}
	a.notify(services.Notice{Level: services.NoticeSuccess, Message: MsgRegistered})
	return nil
}

// Logout forgets the session. The theme is kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.prefs.Delete(ctx, storage.KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.mu.Lock()
	a.user = nil
	a.editing = 0
	a.mu.Unlock()

	a.rec.Clear()
	a.store.Reset("")
	return nil
}

func (a *App) startSession(u core.User) {
	a.mu.Lock()
	a.user = &u
	a.editing = 0
	a.mu.Unlock()

	a.rec.Clear()
	a.store.Reset(u.Email)
}

// User returns the active session, or nil.
func (a *App) User() *core.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *App) Theme() Theme {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.theme
}

// ToggleTheme flips light and dark and saves the choice.
func (a *App) ToggleTheme(ctx context.Context) (Theme, error) {
	a.mu.Lock()
	next := ThemeDark
	if a.theme == ThemeDark {
		next = ThemeLight
	}
	a.theme = next
	a.mu.Unlock()

	if err := a.prefs.Set(ctx, storage.KeyTheme, string(next)); err != nil {
		return next, fmt.Errorf("save theme: %w", err)
	}
	return next, nil
}

// Submit saves the draft. While an edit is open, a draft without its own
// EditingID updates the record being edited, and a successful submit closes
// the edit.
func (a *App) Submit(ctx context.Context, d services.Draft) (core.Transaction, error) {
	a.mu.RLock()
	if d.EditingID == 0 {
		d.EditingID = a.editing
	}
	a.mu.RUnlock()

	tx, err := a.rec.Submit(ctx, d)
	if err != nil {
		return core.Transaction{}, err
	}
	a.CancelEdit()
	return tx, nil
}

func (a *App) Delete(ctx context.Context, id int64) error {
	return a.rec.Delete(ctx, id)
}

// Revert brings back a record whose remote delete failed.
func (a *App) Revert(id int64) error {
	return a.rec.Revert(id)
}

// Refresh reloads the store from the remote list.
func (a *App) Refresh(ctx context.Context) error {
	return a.rec.Refresh(ctx)
}

// Edit opens id for editing and returns the form content for it.
func (a *App) Edit(id int64) (services.Draft, error) {
	tx, ok := a.store.Get(id)
	if !ok {
		return services.Draft{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	a.mu.Lock()
	a.editing = id
	a.mu.Unlock()

	return services.Draft{
		EditingID:   id,
		Type:        tx.Type,
		Amount:      core.FormatRupiah(tx.Amount.Amount, false),
		Category:    tx.Category,
		Day:         tx.Date.DayKey(),
		Description: tx.Description,
		Notes:       tx.Notes,
	}, nil
}

func (a *App) CancelEdit() {
	a.mu.Lock()
	a.editing = 0
	a.mu.Unlock()
}

func (a *App) EditingID() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.editing
}

// Transactions returns the store snapshot, newest first.
func (a *App) Transactions() []core.Transaction {
	return a.store.Snapshot()
}

// View recomputes the dashboard from the current snapshot.
func (a *App) View(now time.Time) View {
	a.mu.RLock()
	v := View{Theme: a.theme, EditingID: a.editing}
	if a.user != nil {
		u := *a.user
		v.User = &u
	}
	a.mu.RUnlock()

	v.Dashboard = analytics.Build(a.store.Snapshot(), now)
	v.Pending = a.rec.Pending()
	return v
}

func (a *App) Pending() []services.PendingSync {
	return a.rec.Pending()
}

// OnChange runs fn after every store mutation.
func (a *App) OnChange(fn func()) {
	a.store.Subscribe(func([]core.Transaction) { fn() })
}

// ExportCSV writes the current snapshot as CSV.
func (a *App) ExportCSV(w io.Writer) error {
	return export.WriteCSV(w, a.store.Snapshot())
}

// Wait blocks until background remote writes have settled.
func (a *App) Wait() {
	a.rec.Wait()
}
