package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const (
	DefaultSMTPHost     = "smtp.gmail.com"
	DefaultSMTPPort     = 465
	DefaultSMTPTimeout  = 30 * time.Second
	DefaultFromName     = "SysJosh Weekly (no-reply)"
	implicitTLSSMTPPort = 465
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, message Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
	Timeout  time.Duration
}

// SMTPMailer sends every message over a separate authenticated SMTP session.
type SMTPMailer struct {
	config SMTPConfig
}

var _ Mailer = &SMTPMailer{}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Host == "" {
		config.Host = DefaultSMTPHost
	}
	if config.Port == 0 {
		config.Port = DefaultSMTPPort
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultSMTPTimeout
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) Send(ctx context.Context, message Message) error {
	msg, err := m.newMessage(message)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.config.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to configure SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send the message via %s: %w", m.config.Host, err)
	}

	return nil
}

func (m *SMTPMailer) newMessage(message Message) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.FromFormat(m.config.FromName, m.config.User); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", m.config.User, err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", message.To, err)
	}

	msg.Subject(message.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, message.HTML)

	return msg, nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	options := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.config.User),
		mail.WithPassword(m.config.Password),
		mail.WithTimeout(m.config.Timeout),
	}

	if m.config.Port == implicitTLSSMTPPort {
		options = append(options, mail.WithSSL())
	} else {
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	return options
}
