package worker

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"net/mail"
	"strings"
	texttemplate "text/template"

	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/mailer"
	"github.com/inr99/academy/pkg/queue"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// emailView is the data every template renders from.
type emailView struct {
	Name    string
	SiteURL string
	Data    map[string]string
}

type emailTemplate struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// EmailProcessor renders email jobs and hands them to a mailer.
type EmailProcessor struct {
	sender    mailer.Sender
	siteURL   string
	templates map[string]emailTemplate
	logger    *zap.Logger
}

// NewEmailProcessor parses the embedded templates.
func NewEmailProcessor(sender mailer.Sender, siteURL string, logger *zap.Logger) (*EmailProcessor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &EmailProcessor{
		sender:    sender,
		siteURL:   strings.TrimRight(siteURL, "/"),
		templates: map[string]emailTemplate{},
		logger:    logger,
	}
	for _, name := range []string{queue.EmailWelcome, queue.EmailSessionSummary} {
		file := "templates/" + name + ".tmpl"
		text, err := texttemplate.New(name).Option("missingkey=zero").ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		html, err := htmltemplate.New(name).Option("missingkey=zero").ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		p.templates[name] = emailTemplate{text: text, html: html}
	}
	return p, nil
}

// Render builds the message for payload without sending it.
func (p *EmailProcessor) Render(payload queue.EmailPayload) (mailer.Message, error) {
	tmpl, ok := p.templates[payload.Template]
	if !ok {
		return mailer.Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, payload.Template)
	}
	view := emailView{Name: payload.RecipientName, SiteURL: p.siteURL, Data: payload.Data}
	if view.Name == "" {
		view.Name = "there"
	}

	var subject, text, html bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&subject, "subject", view); err != nil {
		return mailer.Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.text.ExecuteTemplate(&text, "text", view); err != nil {
		return mailer.Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := tmpl.html.ExecuteTemplate(&html, "html", view); err != nil {
		return mailer.Message{}, fmt.Errorf("render html: %w", err)
	}
	return mailer.Message{
		To:          mail.Address{Name: payload.RecipientName, Address: payload.RecipientEmail},
		Subject:     strings.TrimSpace(subject.String()),
		TextContent: strings.TrimSpace(text.String()),
		HTMLContent: strings.TrimSpace(html.String()),
	}, nil
}

// Process renders and sends one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	msg, err := p.Render(payload)
	if err != nil {
		return err
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	p.logger.Info("email sent", zap.String("job_id", job.ID), zap.String("template", payload.Template))
	return nil
}
