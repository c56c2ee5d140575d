package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/models"
	"github.com/mosquitoalert/mosquito-alert-api/notify"
	templates "github.com/mosquitoalert/mosquito-alert-api/templates/html"
)

// DigestSource supplies the figures for the daily digest
type DigestSource interface {
	Overview(ctx context.Context) (*models.Overview, error)
	Weekly(ctx context.Context) ([]models.DailyCount, error)
	AreaRisk(ctx context.Context) ([]models.AreaRisk, error)
}

// AccountLister lists accounts, used to find admin recipients
type AccountLister interface {
	List(ctx context.Context) ([]models.Account, error)
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	recipients []string
	Source     DigestSource
	Accounts   AccountLister
	Mailer     notify.Mailer
	now        func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(conf config.Digest, source DigestSource, accounts AccountLister, mailer notify.Mailer) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		schedule:   conf.Schedule,
		recipients: conf.Recipients,
		Source:     source,
		Accounts:   accounts,
		Mailer:     mailer,
		now:        time.Now,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() error {
	// Send the admin digest, daily at 7 AM UTC by default
	if _, err := s.cron.AddFunc(s.schedule, s.sendDigest); err != nil {
		return fmt.Errorf("failed to register digest job %q: %w", s.schedule, err)
	}

	s.cron.Start()
	zap.S().Infow("Digest scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Digest scheduler stopped")
}

func (s *Scheduler) sendDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.SendDigest(ctx); err != nil {
		zap.S().Errorw("failed to send digest", "error", err)
	}
}

// SendDigest builds the digest and mails it to every recipient
func (s *Scheduler) SendDigest(ctx context.Context) error {
	to, err := s.digestRecipients(ctx)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		zap.S().Warn("no digest recipients, skipping")
		return nil
	}

	subject, plain, htmlContent, err := s.BuildDigest(ctx)
	if err != nil {
		return err
	}
	if err := s.Mailer.Send(to, subject, plain, htmlContent); err != nil {
		return fmt.Errorf("failed to mail digest: %w", err)
	}
	zap.S().Infow("digest sent", "recipients", len(to))
	return nil
}

// BuildDigest renders the subject, plain text and HTML bodies
func (s *Scheduler) BuildDigest(ctx context.Context) (subject, plain, htmlContent string, err error) {
	overview, err := s.Source.Overview(ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to load overview: %w", err)
	}
	weekly, err := s.Source.Weekly(ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to load weekly counts: %w", err)
	}
	areas, err := s.Source.AreaRisk(ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to load area risk: %w", err)
	}

	subject = fmt.Sprintf("Mosquito Alert daily digest, %s", s.now().UTC().Format("2 Jan 2006"))

	var b strings.Builder
	fmt.Fprintf(&b, "%d reports in total, %d waiting for review.\n", overview.TotalReports, overview.PendingReports)
	fmt.Fprintf(&b, "Valid %d, in progress %d, cleared %d, invalid %d.\n",
		overview.ValidReports, overview.InProgressReports, overview.ClearedReports, overview.InvalidReports)
	high := 0
	for _, a := range areas {
		if a.RiskLevel == models.SeverityHigh {
			high++
			fmt.Fprintf(&b, "High risk: %s (%d reports)\n", templates.AreaLabel(a.Location), a.ReportCount)
		}
	}
	if high == 0 {
		b.WriteString("No high risk areas.\n")
	}

	return subject, b.String(), templates.RenderDigestEmail(subject, *overview, weekly, areas), nil
}

// digestRecipients returns the configured list, or every admin's email
func (s *Scheduler) digestRecipients(ctx context.Context) ([]string, error) {
	if len(s.recipients) > 0 {
		return s.recipients, nil
	}
	if s.Accounts == nil {
		return nil, nil
	}
	accounts, err := s.Accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	var to []string
	for _, a := range accounts {
		if a.Role == models.RoleAdmin && a.Email != "" {
			to = append(to, a.Email)
		}
	}
	return to, nil
}
