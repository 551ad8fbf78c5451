package infra

import (
	"fmt"
	"net/smtp"

	"clubebar/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends bar receipts to members over SMTP.
type Mailer struct {
	host      string
	user      string
	password  string
	addr      string
	clubeNome string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:      cfg.SMTPHost,
		user:      cfg.SMTPUser,
		password:  cfg.SMTPPassword,
		addr:      fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		clubeNome: cfg.ClubeNome,
	}
}

// Configurado reports whether an SMTP host was provided.
func (m *Mailer) Configurado() bool { return m != nil && m.host != "" }

// EnviarComprovante mails the receipt PDF for pedido numero to the address.
func (m *Mailer) EnviarComprovante(to string, numero int64, pdfPath string) error {
	if !m.Configurado() {
		return fmt.Errorf("mailer: SMTP não configurado")
	}
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", m.clubeNome, m.user)
	e.To = []string{to}
	e.Subject = fmt.Sprintf("%s - comprovante do pedido #%d", m.clubeNome, numero)
	e.Text = []byte(fmt.Sprintf("Olá!\n\nSegue em anexo o comprovante do pedido #%d no bar do %s.\n", numero, m.clubeNome))

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
