package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/atinyakov/CatalogAdmin/internal/client/storage"
	"github.com/atinyakov/CatalogAdmin/internal/console"
	"github.com/atinyakov/CatalogAdmin/internal/models"
)

const helpText = `Commands:
  login [email]          sign in (asks for the password)
  check                  verify the current session
  list                   reload and show the products
  view <id> | close      show or hide a product
  new | edit <id>        open the editor
  set <field> <value>    change a field (title, category, unit, origin_price,
                         price, description, content, imageUrl, is_enabled)
  img <n> <url>          set image slot n (from 0)
  addimg | rmimg         add or remove the last image slot
  save | cancel          submit or close the editor
  delete <id>            delete a product after a y/N question
  logout | exit`

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
	muted   = color.New(color.FgHiBlack)
	heading = color.New(color.FgCyan, color.Bold)
)

// shell is the terminal front end of one console.
type shell struct {
	c      *console.Console
	store  *storage.SessionFile
	prompt *storage.Prompter
	out    io.Writer
}

// resume adopts a stored session, if any.
func (sh *shell) resume(ctx context.Context) {
	rec, err := sh.store.Load()
	if err != nil {
		if !errors.Is(err, storage.ErrNoSession) {
			failure.Fprintf(sh.out, "Could not read %s: %v\n", sh.store.Path(), err)
		}
		fmt.Fprintln(sh.out, "Not signed in. Type 'login' to sign in or 'help' for commands.")
		return
	}
	_ = sh.c.VerifySession(ctx, rec.Session)
	sh.after()
	if sh.c.View().Authenticated {
		sh.printProducts()
	}
}

// loop reads commands until exit or end of input.
func (sh *shell) loop(ctx context.Context) {
	for {
		line, err := sh.prompt.Ask(sh.promptLabel())
		if err != nil {
			fmt.Fprintln(sh.out)
			return
		}
		args := storage.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(sh.out, "Bye")
			return
		}
		sh.exec(ctx, args)
	}
}

func (sh *shell) promptLabel() string {
	switch sh.c.View().Mode.(type) {
	case console.Editing:
		return "catalog (editor)> "
	default:
		return "catalog> "
	}
}

// exec runs one command and reports its outcome.
func (sh *shell) exec(ctx context.Context, args []string) {
	err := sh.dispatch(ctx, args)
	sh.after()
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(sh.out, err)
	case errors.Is(err, console.ErrInvalidTransition):
		muted.Fprintln(sh.out, "Not available right now.")
	case errors.Is(err, console.ErrNotAuthenticated):
		muted.Fprintln(sh.out, "Sign in first.")
	case errors.Is(err, console.ErrProductNotFound), errors.Is(err, console.ErrUnknownField),
		errors.Is(err, console.ErrSlotOutOfRange):
		failure.Fprintln(sh.out, err)
	}
}

var errUsage = errors.New("usage")

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

func (sh *shell) dispatch(ctx context.Context, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "help":
		fmt.Fprintln(sh.out, helpText)
		return nil
	case "login":
		return sh.login(ctx, rest)
	case "check":
		s, ok := sh.c.Session()
		if !ok {
			return console.ErrNotAuthenticated
		}
		return sh.c.VerifySession(ctx, s)
	case "logout":
		sh.c.Logout()
		fmt.Fprintln(sh.out, "Signed out.")
		return nil
	case "list":
		if _, err := sh.c.Load(ctx); err != nil {
			return err
		}
		sh.printProducts()
		return nil
	case "view":
		if len(rest) != 1 {
			return usage("view <id>")
		}
		if err := sh.c.Select(rest[0]); err != nil {
			return err
		}
		sh.printDetail()
		return nil
	case "close":
		return sh.c.Select("")
	case "new":
		return sh.showDraftAfter(sh.c.OpenEditor(console.EditorCreate, ""))
	case "edit":
		if len(rest) != 1 {
			return usage("edit <id>")
		}
		return sh.showDraftAfter(sh.c.OpenEditor(console.EditorEdit, rest[0]))
	case "set":
		if len(rest) < 1 {
			return usage("set <field> <value>")
		}
		return sh.showDraftAfter(sh.c.SetField(rest[0], strings.Join(rest[1:], " ")))
	case "img":
		if len(rest) < 1 {
			return usage("img <n> <url>")
		}
		i, err := strconv.Atoi(rest[0])
		if err != nil {
			return usage("img <n> <url>")
		}
		return sh.showDraftAfter(sh.c.SetImageAt(i, strings.Join(rest[1:], "")))
	case "addimg":
		added, err := sh.c.AddImageSlot()
		if err == nil && !added {
			muted.Fprintln(sh.out, "Fill the last image slot first (at most 5 slots).")
		}
		return sh.showDraftAfter(err)
	case "rmimg":
		removed, err := sh.c.RemoveLastImageSlot()
		if err == nil && !removed {
			muted.Fprintln(sh.out, "At least one image slot is kept.")
		}
		return sh.showDraftAfter(err)
	case "save":
		if err := sh.c.SubmitEditor(ctx); err != nil {
			return err
		}
		sh.printProducts()
		return nil
	case "cancel":
		return sh.c.CloseEditor()
	case "delete":
		if len(rest) != 1 {
			return usage("delete <id>")
		}
		return sh.delete(ctx, rest[0])
	default:
		return usage("unknown command " + strconv.Quote(cmd) + ", type 'help'")
	}
}

// delete asks before removing product id. The confirmation is closed again
// whatever the answer, so a failed delete leaves the shell browsing.
func (sh *shell) delete(ctx context.Context, id string) error {
	if err := sh.c.OpenDelete(id); err != nil {
		return err
	}
	m, _ := sh.c.View().Mode.(console.ConfirmingDelete)
	ok, err := sh.prompt.Confirm(fmt.Sprintf("Delete %q?", m.Product.Title))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = sh.c.CloseDelete()
		return err
	}
	if !ok {
		fmt.Fprintln(sh.out, "Deletion cancelled.")
		return sh.c.CloseDelete()
	}
	if err := sh.c.ConfirmDelete(ctx); err != nil {
		_ = sh.c.CloseDelete()
		return err
	}
	sh.printProducts()
	return nil
}

func (sh *shell) login(ctx context.Context, args []string) error {
	email := ""
	if len(args) > 0 {
		email = args[0]
	}
	var err error
	if email == "" {
		if email, err = sh.prompt.Ask("E-mail: "); err != nil {
			return err
		}
	}
	password, err := sh.prompt.AskPassword("Password: ")
	if err != nil {
		return err
	}
	if _, err := sh.c.SubmitCredentials(ctx, models.Credentials{Username: email, Password: password}); err != nil {
		return err
	}
	sh.after()
	if err := sh.store.Save(storage.Record{Session: mustSession(sh.c), Username: email}); err != nil {
		failure.Fprintf(sh.out, "Could not remember the session: %v\n", err)
	}
	sh.printProducts()
	return nil
}

func mustSession(c *console.Console) models.Session {
	s, _ := c.Session()
	return s
}

// after prints pending notifications and mirrors the session into the
// session file.
func (sh *shell) after() {
	for _, t := range sh.c.TakeToasts() {
		p := success
		if t.Kind == console.ToastError {
			p = failure
		}
		p.Fprint(sh.out, t.Title)
		if t.Detail != "" {
			fmt.Fprintf(sh.out, ": %s", t.Detail)
		}
		fmt.Fprintln(sh.out)
	}

	if _, ok := sh.c.Session(); !ok {
		if err := sh.store.Clear(); err != nil {
			failure.Fprintf(sh.out, "Could not remove %s: %v\n", sh.store.Path(), err)
		}
	}
}

func (sh *shell) showDraftAfter(err error) error {
	if err != nil {
		return err
	}
	sh.printDraft()
	return nil
}

func (sh *shell) printProducts() {
	v := sh.c.View()
	if !v.Authenticated {
		return
	}
	if len(v.Products) == 0 {
		muted.Fprintln(sh.out, "No products yet.")
		return
	}
	tw := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tORIGIN PRICE\tPRICE\tSTATUS")
	for _, p := range v.Products {
		status := "disabled"
		if p.IsEnabled {
			status = "enabled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Title, p.Category, models.FormatPrice(p.OriginPrice), models.FormatPrice(p.Price), status)
	}
	_ = tw.Flush()
}

func (sh *shell) printDetail() {
	m, ok := sh.c.View().Mode.(console.Viewing)
	if !ok {
		return
	}
	p := m.Product
	heading.Fprintf(sh.out, "%s [%s]\n", p.Title, p.Category)
	fmt.Fprintf(sh.out, "Description: %s\n", p.Description)
	fmt.Fprintf(sh.out, "Content: %s\n", p.Content)
	fmt.Fprintf(sh.out, "Price: %s (was %s) per %s\n", models.FormatPrice(p.Price), models.FormatPrice(p.OriginPrice), p.Unit)
	if p.ImageURL != "" {
		fmt.Fprintf(sh.out, "Image: %s\n", p.ImageURL)
	}
	for _, u := range p.GalleryImages() {
		fmt.Fprintf(sh.out, "More images: %s\n", u)
	}
}

func (sh *shell) printDraft() {
	e, ok := sh.c.View().Mode.(console.Editing)
	if !ok {
		return
	}
	d := e.Draft
	title := "Edit product"
	if e.Kind == console.EditorCreate {
		title = "New product"
	}
	heading.Fprintln(sh.out, title)
	tw := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	for _, f := range []struct{ name, value string }{
		{console.FieldTitle, d.Title},
		{console.FieldCategory, d.Category},
		{console.FieldUnit, d.Unit},
		{console.FieldOriginPrice, d.OriginPrice},
		{console.FieldPrice, d.Price},
		{console.FieldDescription, d.Description},
		{console.FieldContent, d.Content},
		{console.FieldImageURL, d.ImageURL},
		{console.FieldIsEnabled, strconv.FormatBool(d.IsEnabled)},
	} {
		fmt.Fprintf(tw, "  %s\t%s\n", f.name, f.value)
	}
	for i, u := range d.ImagesURL {
		fmt.Fprintf(tw, "  image %d\t%s\n", i, u)
	}
	_ = tw.Flush()
}
