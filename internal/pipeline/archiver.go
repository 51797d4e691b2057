package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// Archiver copies completed matches and old audit entries to cold storage on
// a cron schedule.
type Archiver struct {
	blobArchiver   domain.Archiver
	matchRetention time.Duration
	auditRetention time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewArchiver creates an Archiver. Matches completed more than
// matchRetentionDays ago and audit rows older than auditRetentionDays are
// archived on each run.
func NewArchiver(blobArchiver domain.Archiver, matchRetentionDays, auditRetentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver:   blobArchiver,
		matchRetention: days(matchRetentionDays, 30),
		auditRetention: days(auditRetentionDays, 90),
		logger:         logger.With(slog.String("component", "archiver")),
		now:            time.Now,
	}
}

func days(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * 24 * time.Hour
}

// Run executes a single archive run.
func (a *Archiver) Run(ctx context.Context) error {
	now := a.now().UTC()
	matchCutoff := now.Add(-a.matchRetention)
	auditCutoff := now.Add(-a.auditRetention)
	a.logger.InfoContext(ctx, "pipeline: archive run starting",
		slog.Time("match_cutoff", matchCutoff),
		slog.Time("audit_cutoff", auditCutoff),
	)

	matches, err := a.blobArchiver.ArchiveMatches(ctx, matchCutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive matches before %v: %w", matchCutoff, err)
	}

	audit, err := a.blobArchiver.ArchiveAudit(ctx, auditCutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive audit before %v: %w", auditCutoff, err)
	}

	a.logger.InfoContext(ctx, "pipeline: archive run complete",
		slog.Int64("matches_archived", matches),
		slog.Int64("audit_archived", audit),
	)
	return nil
}

// RunCron runs the archiver on a 5-field cron schedule
// ("minute hour day-of-month month day-of-week") until ctx is cancelled.
// Fields accept "*", lists, ranges and steps, e.g. "0 */6 * * 1-5".
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	sched, err := parseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("pipeline: cron %q: %w", cronExpr, err)
	}
	a.logger.InfoContext(ctx, "pipeline: archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := sched.next(a.now().UTC())
		if err != nil {
			return fmt.Errorf("pipeline: cron %q: %w", cronExpr, err)
		}
		wait := time.Until(next)
		a.logger.DebugContext(ctx, "pipeline: archiver waiting",
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("pipeline: archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.ErrorContext(ctx, "pipeline: archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// --------------------------------------------------------------------------
// Cron expressions
// --------------------------------------------------------------------------

// cronField is the set of values a field matches.
type cronField struct {
	wildcard bool
	values   map[int]bool
}

func (f cronField) matches(val int) bool {
	return f.wildcard || f.values[val]
}

// parseCronField parses one field within [lo, hi]. Supported forms are "*",
// "n", "a-b", "*/s", "a-b/s" and comma-separated lists of those.
func parseCronField(field string, lo, hi int) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	out := cronField{values: make(map[int]bool)}
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		step := 1
		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return cronField{}, fmt.Errorf("invalid step %q", part)
			}
			step, part = n, base
		}

		start, end := lo, hi
		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var err1, err2 error
			start, err1 = strconv.Atoi(a)
			end, err2 = strconv.Atoi(b)
			if err1 != nil || err2 != nil {
				return cronField{}, fmt.Errorf("invalid range %q", part)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return cronField{}, fmt.Errorf("invalid value %q", part)
			}
			start, end = v, v
		}
		if start < lo || end > hi || start > end {
			return cronField{}, fmt.Errorf("%q out of range %d-%d", part, lo, hi)
		}
		for v := start; v <= end; v += step {
			out.values[v] = true
		}
	}
	return out, nil
}

type cronSchedule struct {
	minute, hour, dayOfMonth, month, dayOfWeek cronField
}

func parseCron(expr string) (cronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return cronSchedule{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	bounds := [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}
	names := [5]string{"minute", "hour", "day-of-month", "month", "day-of-week"}
	var parsed [5]cronField
	for i, f := range fields {
		cf, err := parseCronField(f, bounds[i][0], bounds[i][1])
		if err != nil {
			return cronSchedule{}, fmt.Errorf("%s field: %w", names[i], err)
		}
		parsed[i] = cf
	}
	return cronSchedule{
		minute:     parsed[0],
		hour:       parsed[1],
		dayOfMonth: parsed[2],
		month:      parsed[3],
		dayOfWeek:  parsed[4],
	}, nil
}

func (c cronSchedule) matches(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

// next returns the first minute strictly after `after` matching the
// schedule, searching at most a year ahead.
func (c cronSchedule) next(after time.Time) (time.Time, error) {
	candidate := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(366 * 24 * time.Hour)
	for candidate.Before(limit) {
		if c.matches(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no matching time within a year")
}
