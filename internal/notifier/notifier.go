// Package notifier mails the run report.
package notifier

import (
	"fmt"

	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/notifier/providers"
	"github.com/ibeckermayer/xscrape/internal/report"
)

// Notifier handles sending run reports
type Notifier struct {
	sender         Sender
	to             []string
	onlyIncomplete bool
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to []string, subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender, to []string, onlyIncomplete bool) *Notifier {
	return &Notifier{sender: sender, to: to, onlyIncomplete: onlyIncomplete}
}

// NewFromConfig creates a notifier based on configuration. It returns nil
// when no provider is configured.
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "":
		return nil, nil
	case "smtp":
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender, cfg.To, cfg.OnlyIncomplete), nil
}

// SendReport mails a rendered report. complete tells whether every account
// completed; complete runs are not mailed when only incomplete ones should be.
// It reports whether a mail was sent.
func (n *Notifier) SendReport(r *report.Report, complete bool) (bool, error) {
	if complete && n.onlyIncomplete {
		return false, nil
	}
	subject := r.Title
	if !complete {
		subject += " (incomplete)"
	}
	if err := n.sender.Send(n.to, subject, r.HTMLBody, r.PlainBody); err != nil {
		return false, err
	}
	return true, nil
}
