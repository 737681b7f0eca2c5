package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/procurehub/procurehub/internal/auth"
	"github.com/procurehub/procurehub/internal/shared"
)

// UserStore is the slice of the credential store the admin commands need.
type UserStore interface {
	List(ctx context.Context) ([]auth.User, error)
	SetActive(ctx context.Context, username string, active bool) error
}

// UsersCLI offers account administration outside the HTTP surface.
type UsersCLI struct {
	store UserStore
}

// NewUsersCLI constructs the helper around store.
func NewUsersCLI(store UserStore) (*UsersCLI, error) {
	if store == nil {
		return nil, errors.New("users cli: store required")
	}
	return &UsersCLI{store: store}, nil
}

// UsersOptions carries output destinations for the users command.
type UsersOptions struct {
	Stdout io.Writer
	Stderr io.Writer
}

// UsersCommand runs `users list [-json]`, `users activate <name>` or
// `users deactivate <name>` and returns an exit code.
func (c *UsersCLI) UsersCommand(ctx context.Context, args []string, opts UsersOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(args) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "usage: procurehub users list [-json] | activate <username> | deactivate <username>")
		return 2
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("users list", flag.ContinueOnError)
		fs.SetOutput(opts.Stderr)
		jsonOutput := fs.Bool("json", false, "print users as JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return c.list(ctx, *jsonOutput, opts)
	case "activate", "deactivate":
		if len(args) != 2 || args[1] == "" {
			_, _ = fmt.Fprintf(opts.Stderr, "users %s: exactly one username required\n", args[0])
			return 2
		}
		active := args[0] == "activate"
		if err := c.store.SetActive(ctx, args[1], active); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				_, _ = fmt.Fprintf(opts.Stderr, "users %s: user %q not found\n", args[0], args[1])
				return 1
			}
			_, _ = fmt.Fprintf(opts.Stderr, "users %s: %v\n", args[0], err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "%s: is_active=%t\n", args[1], active)
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "users: unknown command %q\n", args[0])
		return 2
	}
}

func (c *UsersCLI) list(ctx context.Context, jsonOutput bool, opts UsersOptions) int {
	users, err := c.store.List(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "users list: %v\n", err)
		return 1
	}
	if jsonOutput {
		views := make([]auth.PublicUser, 0, len(users))
		for i := range users {
			views = append(views, users[i].Public())
		}
		if err := json.NewEncoder(opts.Stdout).Encode(views); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "users list: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tACTIVE\tCREATED")
	for _, u := range users {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Email, u.IsActive, u.CreatedAt.UTC().Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "users list: %v\n", err)
		return 1
	}
	return 0
}
