package infra

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"clubebar/internal/config"
	"clubebar/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"
)

// Emitente is the issuing company as printed on every NFC-e.
type Emitente struct {
	CNPJ         string
	RazaoSocial  string
	NomeFantasia string
	IE           string
	CRT          int
	UF           string
	CodigoUF     string
	CodigoMunic  string
	Municipio    string
	Logradouro   string
	Numero       string
	Bairro       string
	CEP          string
	Telefone     string
	Serie        string
	Ambiente     int // 1 = produção, 2 = homologação
	NCMPadrao    string
	CFOPPadrao   string
}

func EmitenteFromConfig(cfg *config.Config) Emitente {
	return Emitente{
		CNPJ:         cfg.NFCeCNPJ,
		RazaoSocial:  cfg.NFCeRazaoSocial,
		NomeFantasia: cfg.NFCeNomeFantasia,
		IE:           cfg.NFCeIE,
		CRT:          cfg.NFCeCRT,
		UF:           cfg.NFCeUF,
		CodigoUF:     cfg.NFCeCodigoUF,
		CodigoMunic:  cfg.NFCeCodigoMunic,
		Municipio:    cfg.NFCeMunicipio,
		Logradouro:   cfg.NFCeLogradouro,
		Numero:       cfg.NFCeNumero,
		Bairro:       cfg.NFCeBairro,
		CEP:          cfg.NFCeCEP,
		Telefone:     cfg.NFCeTelefone,
		Serie:        cfg.NFCeSerie,
		Ambiente:     cfg.NFCeAmbiente,
		NCMPadrao:    cfg.NFCeNCMPadrao,
		CFOPPadrao:   cfg.NFCeCFOPPadrao,
	}
}

// tPag codes from the NFC-e layout.
var tPagPorForma = map[model.FormaPagamento]string{
	model.FormaDinheiro:      "01",
	model.FormaCartaoCredito: "03",
	model.FormaCartaoDebito:  "04",
	model.FormaCarteirinha:   "05",
	model.FormaPix:           "17",
	model.FormaCortesia:      "90",
}

var fusoSaoPaulo = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}()

func init() {
	// ACBr reads "chave=valor"; the aligned " = " form is for humans.
	ini.PrettyFormat = false
}

// documentoINI writes sections and keys in insertion order. Inline comment
// markers are not special: "Pedido #31" must reach ACBr unquoted.
type documentoINI struct {
	f   *ini.File
	sec *ini.Section
}

func novoDocumentoINI() *documentoINI {
	return &documentoINI{f: ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})}
}

func (d *documentoINI) secao(nome string) { d.sec = d.f.Section(nome) }

func (d *documentoINI) set(chave, valor string) { d.sec.Key(chave).SetValue(valor) }

func (d *documentoINI) setf(chave, format string, args ...any) {
	d.set(chave, fmt.Sprintf(format, args...))
}

func (d *documentoINI) opcional(chave, valor string) {
	if valor != "" {
		d.set(chave, valor)
	}
}

func (d *documentoINI) String() string {
	var buf bytes.Buffer
	_, _ = d.f.WriteTo(&buf)
	return buf.String()
}

// textoLivre keeps names and notes on one line. ini.v1 would wrap a value
// with a line break or backtick in triple quotes, which ACBr does not parse.
func textoLivre(v string) string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', '`':
			return ' '
		}
		return r
	}, v)
	return strings.TrimSpace(v)
}

// MontarININFCe renders the model 65 document ACBrMonitor expects for
// NFe.CriarEnviarNFe. cpfCNPJ is optional; without it there is no
// [Destinatario] block.
func MontarININFCe(p *model.Pedido, em Emitente, numero int64, cpfCNPJ string, agora time.Time) string {
	d := novoDocumentoINI()

	serie := em.Serie
	if serie == "" {
		serie = "1"
	}
	tpAmb := "2"
	if em.Ambiente == 1 {
		tpAmb = "1"
	}
	crt := em.CRT
	if crt == 0 {
		crt = 1
	}
	simples := crt == 1 || crt == 2 || crt == 4

	d.secao("infNFe")
	d.set("versao", "4.00")

	d.secao("Identificacao")
	d.setf("cNF", "%08d", rand.Intn(100_000_000))
	d.set("natOp", "VENDA")
	d.set("mod", "65")
	d.set("serie", serie)
	d.setf("nNF", "%09d", numero)
	d.set("dhEmi", agora.In(fusoSaoPaulo).Format("02/01/2006 15:04:05"))
	d.set("tpNF", "1")
	d.set("idDest", "1")
	d.set("tpAmb", tpAmb)
	d.set("tpImp", "4")
	d.set("tpEmis", "1")
	d.set("finNFe", "1")
	d.set("indFinal", "1")
	d.set("indPres", "1")
	d.set("procEmi", "0")
	d.opcional("cMunFG", em.CodigoMunic)
	d.set("verProc", "ClubeBar1.0")

	d.secao("Emitente")
	d.setf("CRT", "%d", crt)
	d.set("CNPJCPF", SomenteDigitos(em.CNPJ))
	d.set("xNome", textoLivre(em.RazaoSocial))
	d.set("xFant", textoLivre(valorOu(em.NomeFantasia, em.RazaoSocial)))
	d.set("IE", em.IE)
	d.opcional("xLgr", textoLivre(em.Logradouro))
	d.opcional("nro", em.Numero)
	d.opcional("xBairro", textoLivre(em.Bairro))
	d.opcional("cMun", em.CodigoMunic)
	d.opcional("xMun", textoLivre(em.Municipio))
	if em.UF != "" {
		d.set("UF", em.UF)
		d.opcional("cUF", em.CodigoUF)
	}
	d.opcional("CEP", SomenteDigitos(em.CEP))
	d.opcional("Fone", SomenteDigitos(em.Telefone))
	d.set("cPais", "1058")
	d.set("xPais", "BRASIL")

	if doc := SomenteDigitos(cpfCNPJ); doc != "" {
		d.secao("Destinatario")
		d.set("CNPJCPF", doc)
		d.set("indIEDest", "9")
	}

	descontos := ratearDesconto(p.Itens, p.Desconto)
	vTotalProd := decimal.Zero
	for idx, item := range p.Itens {
		num := fmt.Sprintf("%03d", idx+1)
		qtd := decimal.NewFromInt(int64(item.Quantidade))
		vProd := qtd.Mul(item.PrecoUnitario).Round(2)
		vTotalProd = vTotalProd.Add(vProd)

		unidade := valorOu(item.ProdutoUnidade, "UN")
		d.secao("Produto" + num)
		d.set("cProd", codigoProduto(item.ProdutoID.String(), idx))
		d.set("cEAN", "SEM GTIN")
		d.set("xProd", valorOu(textoLivre(item.ProdutoNome), "PRODUTO"))
		d.set("NCM", valorOu(item.ProdutoNCM, valorOu(em.NCMPadrao, "22030000")))
		d.set("CFOP", valorOu(item.ProdutoCFOP, valorOu(em.CFOPPadrao, "5102")))
		d.set("uCom", unidade)
		d.set("qCom", qtd.StringFixed(4))
		d.set("vUnCom", item.PrecoUnitario.StringFixed(4))
		d.set("vProd", vProd.StringFixed(2))
		d.set("cEANTrib", "SEM GTIN")
		d.set("uTrib", unidade)
		d.set("qTrib", qtd.StringFixed(4))
		d.set("vUnTrib", item.PrecoUnitario.StringFixed(4))
		d.set("indTot", "1")
		d.set("vFrete", "0.00")
		d.set("vSeg", "0.00")
		d.set("vDesc", descontos[idx].StringFixed(2))
		d.set("vOutro", "0.00")

		d.secao("ICMS" + num)
		d.set("orig", "0")
		if simples {
			csosn := valorOu(item.ProdutoCST, "102")
			d.set("CSOSN", csosn)
			if csosn == "500" {
				d.set("vBCSTRet", "0.00")
				d.set("vICMSSTRet", "0.00")
				d.set("pST", "0.00")
			}
		} else {
			cst := valorOu(item.ProdutoCST, "00")
			d.set("CST", cst)
			if cst == "00" {
				d.set("modBC", "0")
				d.set("vBC", vProd.StringFixed(2))
				d.set("pICMS", "0.00")
				d.set("vICMS", "0.00")
			}
		}

		d.secao("PIS" + num)
		d.set("CST", "49")
		d.set("vBC", "0.00")
		d.set("pPIS", "0.00")
		d.set("vPIS", "0.00")

		d.secao("COFINS" + num)
		d.set("CST", "49")
		d.set("vBC", "0.00")
		d.set("pCOFINS", "0.00")
		d.set("vCOFINS", "0.00")
	}

	vNF := vTotalProd.Sub(p.Desconto)
	d.secao("Total")
	d.set("vProd", vTotalProd.StringFixed(2))
	d.set("vDesc", p.Desconto.StringFixed(2))
	d.set("vNF", vNF.StringFixed(2))
	for _, campo := range []string{"vBC", "vICMS", "vICMSDeson", "vBCST", "vST", "vFrete", "vSeg", "vOutro", "vII", "vIPI", "vPIS", "vCOFINS"} {
		d.set(campo, "0.00")
	}

	d.secao("Transportador")
	d.set("modFrete", "9")

	vTroco := decimal.Zero
	for _, pg := range p.Pagamentos {
		vTroco = vTroco.Add(pg.Troco)
	}
	for idx, pg := range p.Pagamentos {
		tPag, ok := tPagPorForma[pg.Forma]
		if !ok {
			tPag = "99"
		}
		d.secao(fmt.Sprintf("pag%03d", idx+1))
		d.set("tPag", tPag)
		d.set("vPag", pg.Valor.StringFixed(2))
		d.set("indPag", "0")
		if tPag == "03" || tPag == "04" {
			d.set("tpIntegra", "2")
		}
		if idx == len(p.Pagamentos)-1 && vTroco.IsPositive() {
			d.set("vTroco", vTroco.StringFixed(2))
		}
	}

	d.secao("DadosAdicionais")
	d.setf("infCpl", "Pedido #%d - %s", p.Numero, textoLivre(valorOu(em.NomeFantasia, em.RazaoSocial)))

	return d.String()
}

// ratearDesconto spreads the order discount over the items in proportion to
// their value; the last item absorbs the rounding so the parts add up to
// [Total] vDesc.
func ratearDesconto(itens []model.ItemPedido, desconto decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(itens))
	for i := range out {
		out[i] = decimal.Zero
	}
	if len(itens) == 0 || !desconto.IsPositive() {
		return out
	}
	base := decimal.Zero
	for _, it := range itens {
		base = base.Add(it.Subtotal)
	}
	if !base.IsPositive() {
		return out
	}
	restante := desconto
	for i, it := range itens[:len(itens)-1] {
		out[i] = desconto.Mul(it.Subtotal).Div(base).Round(2)
		restante = restante.Sub(out[i])
	}
	out[len(itens)-1] = restante
	return out
}

func valorOu(v, padrao string) string {
	if strings.TrimSpace(v) == "" {
		return padrao
	}
	return v
}

func codigoProduto(id string, idx int) string {
	if id == "" {
		return fmt.Sprintf("%d", idx+1)
	}
	if len(id) > 20 {
		return id[:20]
	}
	return id
}
