package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/cafebook/internal/booking"
	"github.com/example/cafebook/internal/browser"
	"github.com/example/cafebook/internal/loop"
	"github.com/example/cafebook/internal/runs"
	"github.com/example/cafebook/internal/waiter"
)

// countdownLead is how long before opening the operator gets a heads-up.
const countdownLead = time.Minute

type runFlags struct {
	venue     string
	guests    int
	date      string
	start     string
	end       string
	wait      bool
	headless  bool
	noJournal bool
}

func (f runFlags) request(now time.Time) (booking.Request, error) {
	venue, err := booking.ParseVenue(f.venue)
	if err != nil {
		return booking.Request{}, err
	}
	date, err := booking.ParseDate(f.date)
	if err != nil {
		return booking.Request{}, err
	}
	var minTime, maxTime *booking.TimeSlot
	if f.start != "" {
		t, err := booking.ParseTimeSlot(f.start)
		if err != nil {
			return booking.Request{}, fmt.Errorf("--start: %w", err)
		}
		minTime = &t
	}
	if f.end != "" {
		t, err := booking.ParseTimeSlot(f.end)
		if err != nil {
			return booking.Request{}, fmt.Errorf("--end: %w", err)
		}
		maxTime = &t
	}
	return booking.NewRequest(venue, f.guests, date, minTime, maxTime, now)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var f runFlags

	c := &cobra.Command{
		Use:   "run",
		Short: "Open the reservation site and drive it to the final step",
		Long: `run opens the venue's reservation site and polls it every poll_seconds,
advancing through terms, guest count, calendar and time slot. It stops at the
final step and leaves the browser open for you to complete the booking.

Times are Pokémon Cafe (Japan) time. With --wait it sleeps until reservations
for --date open: 18:00 JST, 31 days before.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			req, err := f.request(time.Now())
			if err != nil {
				return err
			}
			token := uuid.NewString()
			logger = logger.With("run", token)
			logger.Info("booking request",
				"venue", req.Venue, "guests", req.Guests, "date", req.Date.Format(booking.DateLayout))
			logger.Info("slot policy: " + req.PolicyDescription())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if f.wait {
				opening := req.OpeningTime()
				_, err := waiter.WaitForOpening(ctx, waiter.System, opening, countdownLead, logger)
				if errors.Is(err, context.Canceled) {
					logger.Info("interrupted while waiting, exiting")
					return nil
				}
				if err != nil {
					return err
				}
			}

			var journal *runs.Journal
			if cfg.DatabaseURL != "" && !f.noJournal {
				d, err := openDB(ctx, cfg, true)
				if err != nil {
					return err
				}
				defer d.Close()
				repo := runs.NewRepo(d)
				id, err := repo.Create(ctx, token, req)
				if err != nil {
					return fmt.Errorf("create run: %w", err)
				}
				journal = repo.Journal(id)
				logger.Info("journaling run", "journal_id", journal.RunID(), "url", runURL(cfg.BaseURL, journal.RunID()))
			}

			// The browser is not tied to ctx: an interrupt must leave it up.
			sess, err := browser.Start(context.Background(), browser.Options{
				RemoteURL: cfg.RemoteURL,
				ExecPath:  cfg.ChromePath,
				Headless:  cfg.Headless,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			if err := sess.Open(ctx, req.Venue.URL()); err != nil {
				sess.Close()
				return fmt.Errorf("open %s: %w", req.Venue.URL(), err)
			}

			l := &loop.Loop{
				Session:  sess,
				Request:  req,
				Interval: cfg.PollInterval,
				Logger:   logger,
			}
			if journal != nil {
				l.Journal = journal
			}
			runErr := l.Run(ctx)

			if journal != nil {
				if err := journal.Finish(context.WithoutCancel(ctx), runErr); err != nil {
					logger.Warn("journal finish failed", "error", err)
				}
			}
			return finish(cmd, logger, sess, runErr)
		},
	}

	c.Flags().StringVarP(&f.venue, "venue", "c", "", "venue: tokyo or osaka")
	c.Flags().IntVarP(&f.guests, "guests", "g", 0, fmt.Sprintf("number of guests (%d-%d)", booking.MinGuests, booking.MaxGuests))
	c.Flags().StringVarP(&f.date, "date", "d", "", "reservation date, YYYY-MM-DD (cafe time)")
	c.Flags().StringVarP(&f.start, "start", "s", "", "earliest acceptable time, HH:MM (cafe time); prefers later slots when alone")
	c.Flags().StringVarP(&f.end, "end", "e", "", "latest acceptable time, HH:MM (cafe time); prefers earlier slots when alone")
	c.Flags().BoolVarP(&f.wait, "wait", "w", false, "sleep until reservations for --date open (18:00 JST, 31 days before)")
	c.Flags().BoolVar(&f.headless, "headless", false, "run Chrome headless (captchas cannot be solved)")
	c.Flags().BoolVar(&f.noJournal, "no-journal", false, "do not record this run even if database_url is set")
	_ = c.MarkFlagRequired("venue")
	_ = c.MarkFlagRequired("guests")
	_ = c.MarkFlagRequired("date")
	return c
}

// closer is the part of the browser session finish needs.
type closer interface{ Close() }

// finish handles the ways a run ends.
func finish(cmd *cobra.Command, logger *slog.Logger, sess closer, runErr error) error {
	switch {
	case runErr == nil:
		logger.Info("reached the final step; complete the reservation in the browser, it stays open")
		return nil
	case errors.Is(runErr, loop.ErrSessionLost):
		logger.Info("the browser session was closed, exiting")
		sess.Close()
		return nil
	case errors.Is(runErr, context.Canceled):
		if confirmClose(cmd.InOrStdin(), cmd.ErrOrStderr()) {
			sess.Close()
		}
		return nil
	}
	sess.Close()
	return runErr
}

// confirmClose asks whether to close the browser after an interrupt. Enter
// closes it; a second interrupt or EOF leaves it open.
func confirmClose(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Stopped. Hit Enter to also close the browser, Ctrl+C again to exit and leave it open.\n")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	line := make(chan bool, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		line <- err == nil
	}()

	select {
	case ok := <-line:
		return ok
	case <-sig:
		return false
	}
}

// runURL is the status page for run id under the web base URL.
func runURL(base string, id int64) string {
	return fmt.Sprintf("%s/runs/%d", strings.TrimRight(base, "/"), id)
}
