// Command inbox-watch follows an admin's notification inbox from a terminal:
// it prints a toast per new notification, rings the bell unless DND is on,
// and accepts simple commands on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/agency-backoffice/internal/inbox"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("INBOX_API_URL", "http://localhost:8080/admin"), "admin API base URL")
	token := flag.String("token", os.Getenv("ADMIN_TOKEN"), "admin bearer token")
	quiet := flag.Bool("quiet", false, "never ring the terminal bell")
	flag.Parse()

	logger := logging.NewWithWriter(envOr("LOG_LEVEL", "warn"), "text", os.Stderr)
	if strings.TrimSpace(*token) == "" {
		logger.Error("an admin token is required (-token or ADMIN_TOKEN)")
		os.Exit(2)
	}

	streamURL, err := streamURLFor(*apiURL)
	if err != nil {
		logger.Error("invalid api url", "error", err)
		os.Exit(2)
	}

	opts := inbox.Options{Toaster: &inbox.WriterToaster{W: os.Stdout}}
	if !*quiet {
		opts.Beeper = inbox.BellBeeper{W: os.Stdout}
	}
	session := inbox.NewSession(
		inbox.NewClient(*apiURL, *token),
		inbox.NewWebsocketFeed(streamURL, *token, logger),
		opts,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		logger.Error("failed to load inbox", "error", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, session)

	go commands(ctx, stop, os.Stdin, os.Stdout, session, logger)

	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("inbox stream failed", "error", err)
		os.Exit(1)
	}
}

// streamURLFor maps http(s)://host/admin to ws(s)://host/admin/notifications/stream.
func streamURLFor(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/notifications/stream"
	return u.String(), nil
}

func printSummary(w io.Writer, s *inbox.Session) {
	state := s.Snapshot()
	fmt.Fprintf(w, "%d notifications, %d unread", len(state.Notifications), state.Unread)
	if s.InDND() {
		fmt.Fprint(w, " (do not disturb)")
	}
	fmt.Fprintln(w)
}

// commands reads "read <id>", "read-all", "list" and "quit" until ctx ends or
// input closes.
func commands(ctx context.Context, stop func(), in io.Reader, out io.Writer, s *inbox.Session, logger *logging.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "read":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: read <id>")
				continue
			}
			err = s.MarkAsRead(ctx, fields[1])
		case "read-all":
			err = s.MarkAllAsRead(ctx)
		case "list":
			for _, n := range s.Snapshot().Notifications {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s  %s: %s\n", mark, n.ID, n.Title, n.Message)
			}
		case "quit", "exit":
			stop()
			return
		default:
			fmt.Fprintln(out, "commands: list, read <id>, read-all, quit")
			continue
		}
		if err != nil {
			logger.Warn("command failed", "command", fields[0], "error", err)
			continue
		}
		printSummary(out, s)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
