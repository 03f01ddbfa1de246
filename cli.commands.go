package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const commandsUsage = `commands:
  login -u user -p password     exchange credentials for a token and store it
  logout                        forget the stored token
  whoami                        show the stored session
  get <id>                      show a book
  list [filters] [-page n] [-size n] [-all]
                                list books, filters: -titel -isbn -art -lieferbar -rating -preis
  create -f book.json           create a book
  delete <id>                   delete a book
  update <id> -f patch.json [-if-match version]
                                apply a partial update`

var ErrNotLoggedIn = errors.New("not logged in, run login first")

// usageError is returned for malformed command lines.
type usageError string

func (u usageError) Error() string {
	return string(u)
}

// ExitCode maps a command error onto the process exit code.
func ExitCode(err error) int {
	var uerr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr):
		return 2
	case errors.Is(err, ErrNotFound):
		return 3
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionUnknown):
		return 4
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrAuthentication), errors.Is(err, ErrNotLoggedIn):
		return 5
	}
	return 1
}

// commandResult is printed for commands whose response has no body of interest.
type commandResult struct {
	Status int    `json:"status"`
	ID     int    `json:"id,omitempty"`
	ETag   string `json:"etag,omitempty"`
}

// Execute dispatches args to the matching command.
func (app *App) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command\n" + commandsUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return app.login(ctx, rest)
	case "logout":
		return app.logout(ctx)
	case "whoami":
		return app.whoami(ctx)
	case "get":
		return app.get(ctx, rest)
	case "list":
		return app.list(ctx, rest)
	case "create":
		return app.create(ctx, rest)
	case "delete":
		return app.delete(ctx, rest)
	case "update":
		return app.update(ctx, rest)
	}
	return usageError(fmt.Sprintf("unknown command %q\n%s", cmd, commandsUsage))
}

func (app *App) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *username == "" || *password == "" {
		return usageError("login requires -u and -p")
	}

	token, err := app.tokens.Token(ctx, Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	now := app.clock.Now()
	session := Session{}.Login(token).WithDefaultExpiry(now, app.config.Session.TTL)
	if session.Subject == "" {
		session.Subject = *username
	}
	if err = app.store.Save(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	app.logger.Info("logged in", zap.String("session.subject", session.Subject), zap.Time("session.expires_at", session.ExpiresAt))
	return app.print(sessionView(session, now))
}

func (app *App) logout(ctx context.Context) error {
	if err := app.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return app.print(sessionView(Session{}.Logout(), app.clock.Now()))
}

func (app *App) whoami(ctx context.Context) error {
	session, err := app.session(ctx)
	if err != nil {
		return err
	}
	return app.print(sessionView(session, app.clock.Now()))
}

func (app *App) get(ctx context.Context, args []string) error {
	id, _, err := parseID("get", args)
	if err != nil {
		return err
	}
	book, err := app.books.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return app.print(book)
}

func (app *App) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	title := fs.String("titel", "", "title substring")
	isbn := fs.String("isbn", "", "isbn")
	kind := fs.String("art", "", "kind: EPUB, HARDCOVER or PAPERBACK")
	available := fs.Bool("lieferbar", false, "only available books")
	rating := fs.Int("rating", 0, "minimum rating")
	price := fs.String("preis", "", "maximum price")
	page := fs.Int("page", 0, "page number, starting at 0")
	size := fs.Int("size", 0, "page size")
	all := fs.Bool("all", false, "fetch every page")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	c := Criteria{Title: *title, ISBN: *isbn, AvailableOnly: *available, MinRating: *rating}
	if *kind != "" {
		k, err := ParseKind(*kind)
		if err != nil {
			return usageError(err.Error())
		}
		c.Kind = k
	}
	if *price != "" {
		p, err := strconv.ParseFloat(*price, 64)
		if err != nil || p < 0 {
			return usageError(fmt.Sprintf("invalid price %q", *price))
		}
		c.MaxPrice = &p
	}
	if *page < 0 || *size < 0 {
		return usageError("page and size must not be negative")
	}

	if *all {
		books, err := app.books.FindAll(ctx, c, *size)
		if err != nil {
			return err
		}
		return app.print(books)
	}
	result, err := app.books.FindByCriteria(ctx, c, Pagination{Page: *page, Size: *size})
	if err != nil {
		return err
	}
	return app.print(result)
}

func (app *App) create(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	file := fs.String("f", "", "json file holding the book")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *file == "" {
		return usageError("create requires -f")
	}
	var body CreateRequest
	if err := readJSONFile(*file, &body); err != nil {
		return err
	}
	session, err := app.session(ctx)
	if err != nil {
		return err
	}

	resp, err := app.books.Create(ctx, body, session.Token)
	if err != nil {
		return err
	}
	result := commandResult{Status: resp.StatusCode}
	if id, err := CreatedID(resp); err == nil {
		result.ID = id
	} else {
		app.logger.Warn("created book id unknown", zap.Error(err))
	}
	return app.print(result)
}

func (app *App) delete(ctx context.Context, args []string) error {
	id, _, err := parseID("delete", args)
	if err != nil {
		return err
	}
	session, err := app.session(ctx)
	if err != nil {
		return err
	}
	resp, err := app.books.Delete(ctx, id, session.Token)
	if err != nil {
		return err
	}
	return app.print(commandResult{Status: resp.StatusCode, ID: id})
}

func (app *App) update(ctx context.Context, args []string) error {
	id, rest, err := parseID("update", args)
	if err != nil {
		return err
	}
	fs := newFlagSet("update")
	file := fs.String("f", "", "json file holding the patch")
	ifMatch := fs.String("if-match", "", "version to use as precondition instead of the current one")
	if err = fs.Parse(rest); err != nil {
		return usageError(err.Error())
	}
	if *file == "" {
		return usageError("update requires -f")
	}
	var patch Patch
	if err = readJSONFile(*file, &patch); err != nil {
		return err
	}
	session, err := app.session(ctx)
	if err != nil {
		return err
	}

	resp, err := app.updater.Update(ctx, UpdateCommand{ID: id, Patch: patch, Token: session.Token, IfMatch: *ifMatch})
	if err != nil {
		return err
	}
	return app.print(commandResult{Status: resp.StatusCode, ID: id, ETag: resp.Header.Get("ETag")})
}

// session loads the stored session and checks it is still valid.
func (app *App) session(ctx context.Context) (Session, error) {
	session, err := app.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return session, ErrNotLoggedIn
	}
	if err != nil {
		return session, fmt.Errorf("load session: %w", err)
	}
	if !session.LoggedIn(app.clock.Now()) {
		return Session{}, ErrNotLoggedIn
	}
	return session, nil
}

func (app *App) print(v interface{}) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type sessionOutput struct {
	LoggedIn  bool       `json:"logged_in"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func sessionView(s Session, now time.Time) sessionOutput {
	out := sessionOutput{LoggedIn: s.LoggedIn(now), Subject: s.Subject}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(cmd string, args []string) (int, []string, error) {
	if len(args) == 0 {
		return 0, nil, usageError(cmd + " requires a book id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, nil, usageError(fmt.Sprintf("invalid book id %q", args[0]))
	}
	return id, args[1:], nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return usageError(fmt.Sprintf("decode %s: %v", path, err))
	}
	return nil
}
