package dto

type EmitirNFCeRequest struct {
	PedidoID string `json:"pedido_id" validate:"required,uuid"`
	// CPFCNPJ of the buyer, digits only. Optional on NFC-e.
	CPFCNPJ *string `json:"cpf_cnpj" validate:"omitempty,numeric,min=11,max=14"`
}

type CancelarNFCeRequest struct {
	Justificativa string `json:"justificativa" validate:"required,min=15,max=255"`
}

type NFCeResponse struct {
	ID              string  `json:"id"`
	PedidoID        string  `json:"pedido_id"`
	Status          string  `json:"status"`
	Numero          *int64  `json:"numero"`
	Serie           *string `json:"serie"`
	ChaveAcesso     *string `json:"chave_acesso"`
	Protocolo       *string `json:"protocolo"`
	CStat           *string `json:"cstat"`
	MensagemRetorno *string `json:"mensagem_retorno"`
	CPFCNPJ         *string `json:"cpf_cnpj"`
	EmitidoEm       *string `json:"emitido_em"`
	CanceladoEm     *string `json:"cancelado_em"`
}

type StatusEmissorResponse struct {
	Conectado bool   `json:"conectado"`
	Mensagem  string `json:"mensagem"`
	Circuito  string `json:"circuito"`
}
