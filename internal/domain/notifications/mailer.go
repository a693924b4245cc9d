package notifications

import (
	"bytes"
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"math/big"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[EmailKind]string{
	KindActivation:           "Activate your account",
	KindWelcome:              "Account verified",
	KindPasswordReset:        "Reset your password",
	KindPasswordResetSuccess: "Password reset successful",
}

type MailerConfig struct {
	OTPTTL      time.Duration
	FrontendURL string
}

// Mailer renders and sends queued email jobs.
type Mailer struct {
	otps      OTPStore
	sender    Sender
	templates *template.Template
	cfg       MailerConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewMailer(otps OTPStore, sender Sender, cfg MailerConfig, logger *slog.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 15 * time.Minute
	}
	return &Mailer{
		otps:      otps,
		sender:    sender,
		templates: tmpl,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type templateData struct {
	Name        string
	OTP         string
	FrontendURL string
}

// Handle sends one email job. Activation and password reset jobs issue a
// new OTP, replacing any previous one for the user.
func (m *Mailer) Handle(ctx context.Context, job *EmailJob) error {
	data := templateData{Name: job.FullName(), FrontendURL: m.cfg.FrontendURL}

	if job.Kind.issuesOTP() {
		code, err := GenerateOTP()
		if err != nil {
			return err
		}
		otp := OTP{Code: code, ExpiresAt: m.now().Add(m.cfg.OTPTTL)}
		if err := m.otps.Save(ctx, job.UserID, otp); err != nil {
			return fmt.Errorf("failed to save otp: %w", err)
		}
		data.OTP = code
	}

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, string(job.Kind)+".html", data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", job.Kind, err)
	}

	msg := Message{To: job.Email, Subject: subjects[job.Kind], HTML: body.String()}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email: %w", job.Kind, err)
	}

	m.logger.Info("Email sent", "kind", job.Kind, "user_id", job.UserID)
	return nil
}

// GenerateOTP returns a random six digit code without a leading zero.
func GenerateOTP() (string, error) {
	lo := big.NewInt(100000)
	span := big.NewInt(900000)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return n.Add(n, lo).String(), nil
}
