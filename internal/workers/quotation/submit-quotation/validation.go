package submitquotation

import (
	"cotacao-workers/internal/common/validation"
	eq "cotacao-workers/internal/workers/quotation/evaluate-quotation"
)

var inputSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["vehicle"],
  "properties": {
    "vehicle": ` + eq.VehicleSchema + `,
    "contact": {
      "type": "object",
      "properties": {
        "name":  {"type": "string", "maxLength": 200},
        "email": {"type": "string", "maxLength": 320},
        "phone": {"type": "string", "maxLength": 40}
      }
    }
  }
}`)
