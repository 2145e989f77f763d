package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/geocoder89/taskdeck/internal/client"
	"github.com/geocoder89/taskdeck/internal/client/session"
	"github.com/geocoder89/taskdeck/internal/domain/task"
)

const usage = `usage: taskctl <command> [flags]

commands:
  signup -email E -password P
  login -email E -password P
  logout
  whoami
  github-url
  github-complete <redirect-url>
  tasks [-status S] [-priority P] [-q text] [-sort field] [-order asc|desc] [-page N] [-page-size N]
  add -title T [-description D] [-type T] [-status S] [-priority P]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := client.LoadConfig()
	if err != nil {
		exitf("config: %v", err)
	}

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		exitf("%v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func run(ctx context.Context, cfg client.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	store := session.NewStore(cfg.SessionFile)
	api := client.New(cfg.APIURL)
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "signup", "login":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		var (
			res client.AuthResponse
			err error
		)
		if cmd == "signup" {
			res, err = api.SignUp(ctx, *email, *password)
		} else {
			res, err = api.Login(ctx, *email, *password)
		}
		if err != nil {
			return err
		}
		if err := store.Save(res.Session()); err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s\n", res.User.Email)
		return nil

	case "logout":
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")
		return nil

	case "github-url":
		if cfg.GitHubClientID == "" {
			return errors.New("TASKDECK_GITHUB_CLIENT_ID is not set")
		}
		fmt.Fprintln(out, session.AuthorizeURL(cfg.GitHubClientID, cfg.GitHubRedirect))
		return nil

	case "github-complete":
		if len(rest) != 1 {
			return errors.New("usage: taskctl github-complete <redirect-url>")
		}
		sess, err := session.FromRedirect(rest[0])
		if err != nil {
			return err
		}
		if err := store.Save(sess); err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s\n", sess.User.Email)
		return nil
	}

	sess, err := store.Require()
	if err != nil {
		return err
	}
	authed := api.WithToken(sess.Token)

	err = runProtected(ctx, authed, cmd, rest, out)
	if errors.Is(err, client.ErrUnauthorized) {
		_ = store.Clear()
		return fmt.Errorf("%w: %v", session.ErrNotAuthenticated, err)
	}
	return err
}

func runProtected(ctx context.Context, api *client.Client, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "whoami":
		me, err := api.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s, id %s)\n", me.Email, me.Provider, me.ID)
		return nil

	case "tasks":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		status := fs.String("status", "", "comma separated statuses")
		priority := fs.String("priority", "", "comma separated priorities")
		q := fs.String("q", "", "search title or task id")
		sortBy := fs.String("sort", "", "sort field")
		order := fs.String("order", "", "asc or desc")
		page := fs.Int("page", 1, "page number")
		pageSize := fs.Int("page-size", 0, "page size")
		if err := fs.Parse(args); err != nil {
			return err
		}

		res, err := api.ListTasks(ctx, client.ListOptions{
			Status:   splitList(*status),
			Priority: splitList(*priority),
			Query:    *q,
			Sort:     *sortBy,
			Order:    *order,
			Page:     *page,
			PageSize: *pageSize,
		})
		if err != nil {
			return err
		}

		for _, t := range res.Items {
			star := " "
			if t.Favorite {
				star = "*"
			}
			fmt.Fprintf(out, "%s %-10s %-12s %-7s %s\n", star, t.TaskID, t.Status, t.Priority, t.Title)
		}
		fmt.Fprintf(out, "page %d/%d, %d total\n", res.Page, res.TotalPages, res.Total)
		return nil

	case "add":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		title := fs.String("title", "", "task title")
		description := fs.String("description", "", "task description")
		typ := fs.String("type", "", "task type")
		status := fs.String("status", "", "task status")
		priority := fs.String("priority", "", "task priority")
		if err := fs.Parse(args); err != nil {
			return err
		}

		t, err := api.CreateTask(ctx, task.CreateTaskRequest{
			Title:       *title,
			Description: *description,
			Type:        *typ,
			Status:      task.Status(*status),
			Priority:    task.Priority(*priority),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %s\n", t.TaskID)
		return nil
	}

	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
