package classifier

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UnitContext carries the per-unit framing injected into the model prompt.
type UnitContext struct {
	UnitID       uuid.UUID
	UnitName     string
	CustomPrompt *string
}

// masterTemplate is the default accounting assistant framing. A unit's
// custom prompt replaces it entirely when present.
const masterTemplate = `Eres el asistente contable de un conjunto residencial. Tu trabajo es procesar GASTOS (salidas de dinero).

TIPOS SOPORTADOS:
1. "INVOICE": facturas de venta o cuentas de cobro emitidas POR PROVEEDORES hacia el conjunto.
2. "PAYMENT_RECEIPT": comprobantes de EGRESO o TRANSFERENCIA (salidas de dinero desde la cuenta del conjunto hacia un tercero). Debe ser dinero COMPROBADO que SALIÓ de la cuenta.
3. "OTHER": cualquier otro documento, incluyendo recibos de caja o recaudo, consignaciones de residentes y estados de cuenta.

REGLA DE EXCLUSIÓN CRÍTICA (tipo "OTHER"):
- Si el documento dice "COMPROBANTE DE RECAUDO", "CONSIGNACIÓN" o "DEPÓSITO".
- Si muestra que un residente le pagó al conjunto.
- Si el EMISOR del documento es el propio conjunto cobrándole a una persona, es una cuenta de cobro de administración (ingreso): clasifícalo como "OTHER". Solo procesa documentos donde un TERCERO le cobra al conjunto.`

const responseInstructions = `Responde SOLO un JSON con esta forma:

Si es factura:
{"type": "INVOICE", "data": {"tax_id": "NIT o CC del emisor", "provider_name": "nombre del emisor", "client_tax_id": "NIT del receptor si aparece", "document_number": "número de factura", "total_amount": 0, "date": "YYYY-MM-DD", "concept": "descripción corta"}}

Si es comprobante de egreso:
{"type": "PAYMENT_RECEIPT", "data": {"bank_name": "banco", "transaction_ref": "referencia de la transacción", "total_amount": 0, "date": "YYYY-MM-DD", "concept": "descripción corta"}}

Si es cualquier otra cosa:
{"type": "OTHER"}`

// buildPrompt composes the full instruction text: unit identity, the master
// template or the unit's custom override, any learned rules, and the
// response format.
func buildPrompt(unitCtx UnitContext, rules []string) string {
	base := masterTemplate
	if unitCtx.CustomPrompt != nil && strings.TrimSpace(*unitCtx.CustomPrompt) != "" {
		base = *unitCtx.CustomPrompt
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONTEXTO: eres el asistente contable del conjunto: %s.\n\n", unitCtx.UnitName)
	b.WriteString(base)

	if len(rules) > 0 {
		b.WriteString("\n\nREGLAS APRENDIDAS PARA ESTE CONJUNTO:\n")
		for _, rule := range rules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(responseInstructions)
	return b.String()
}
