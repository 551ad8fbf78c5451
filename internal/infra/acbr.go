package infra

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"
)

// ACBrMonitor speaks a line-oriented text protocol over TCP: one command per
// connection, terminated by CRLF; the reply ends with ETX (0x03).
const acbrETX = 0x03

// ErrBridgeUnavailable wraps dial/read failures so callers can tell a dead
// monitor apart from a SEFAZ rejection.
var ErrBridgeUnavailable = errors.New("acbr: monitor indisponível")

// ACBrResposta is the parsed reply to an NFe.* command.
type ACBrResposta struct {
	OK         bool   // reply started with "OK:"
	Autorizada bool   // CStat 100/150, or a chave came back
	CStat      string
	Motivo     string
	Protocolo  string
	Chave      string
	XML        string
	Bruta      string // full reply, ETX stripped
}

// ACBrClient sends commands to an ACBrMonitor instance.
type ACBrClient struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func NewACBrClient(addr string, timeout time.Duration) *ACBrClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ACBrClient{addr: addr, timeout: timeout}
}

func (c *ACBrClient) Addr() string { return c.addr }

// Comando writes cmd and returns the reply with ETX removed and spaces trimmed.
func (c *ACBrClient) Comando(ctx context.Context, cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, cmd+"\r\n"); err != nil {
		return "", fmt.Errorf("%w: write: %v", ErrBridgeUnavailable, err)
	}

	raw, err := bufio.NewReader(conn).ReadBytes(acbrETX)
	if err != nil && !(errors.Is(err, io.EOF) && len(raw) > 0) {
		return "", fmt.Errorf("%w: read: %v", ErrBridgeUnavailable, err)
	}
	raw = bytes.TrimSuffix(raw, []byte{acbrETX})
	return strings.TrimSpace(string(raw)), nil
}

// EmitirNFCe sends NFe.CriarEnviarNFe with the INI document inline.
func (c *ACBrClient) EmitirNFCe(ctx context.Context, ini string, numero int64) (*ACBrResposta, error) {
	cmd := fmt.Sprintf(`NFe.CriarEnviarNFe("%s", %d, 0, 1)`, escapeACBr(ini), numero)
	bruta, err := c.Comando(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return ParseACBrResposta(bruta), nil
}

// CancelarNFCe sends NFe.Cancelar(chave, justificativa, cnpj, lote).
func (c *ACBrClient) CancelarNFCe(ctx context.Context, chave, justificativa, cnpj string) (*ACBrResposta, error) {
	cmd := fmt.Sprintf(`NFe.Cancelar("%s", "%s", "%s", 1)`,
		chave, escapeACBr(justificativa), SomenteDigitos(cnpj))
	bruta, err := c.Comando(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return ParseACBrResposta(bruta), nil
}

// StatusServico asks the monitor for the SEFAZ service status.
func (c *ACBrClient) StatusServico(ctx context.Context) (*ACBrResposta, error) {
	bruta, err := c.Comando(ctx, "NFe.StatusServico")
	if err != nil {
		return nil, err
	}
	return ParseACBrResposta(bruta), nil
}

// ParseACBrResposta reads the OK:/ERRO: envelope and the INI-style fields.
func ParseACBrResposta(bruta string) *ACBrResposta {
	r := &ACBrResposta{Bruta: bruta}

	if conteudo, ok := strings.CutPrefix(bruta, "OK:"); ok {
		conteudo = strings.TrimSpace(conteudo)
		r.OK = true
		r.CStat = campoACBr(conteudo, "CStat")
		r.Motivo = campoACBr(conteudo, "XMotivo")
		r.Protocolo = campoACBr(conteudo, "NProt")
		r.Chave = campoACBr(conteudo, "ChNFe")
		r.XML = campoACBr(conteudo, "XML")
		if r.XML == "" {
			r.XML = campoACBr(conteudo, "Arquivo")
		}
		r.Autorizada = r.CStat == "100" || r.CStat == "150" || r.Chave != ""
		if r.Motivo == "" {
			if r.Autorizada {
				r.Motivo = "Autorizado o uso da NF-e"
			} else {
				r.Motivo = conteudo
			}
		}
		return r
	}

	if msg, ok := strings.CutPrefix(bruta, "ERRO:"); ok {
		r.Motivo = strings.TrimSpace(msg)
	} else {
		r.Motivo = bruta
	}
	r.CStat = campoACBr(bruta, "CStat")
	return r
}

var campoACBrCache = map[string]*regexp.Regexp{}

func init() {
	for _, nome := range []string{"CStat", "XMotivo", "NProt", "ChNFe", "XML", "Arquivo"} {
		campoACBrCache[nome] = regexp.MustCompile(`(?i)` + nome + `=(.+?)(?:\r?\n|$)`)
	}
}

func campoACBr(texto, nome string) string {
	re, ok := campoACBrCache[nome]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(texto)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func escapeACBr(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// SomenteDigitos strips CNPJ/CPF punctuation.
func SomenteDigitos(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
