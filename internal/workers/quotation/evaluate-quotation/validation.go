package evaluatequotation

import "cotacao-workers/internal/common/validation"

// VehicleSchema validates the vehicle object shared by the quotation workers.
const VehicleSchema = `{
  "type": "object",
  "required": ["brand", "model", "fipeValue"],
  "properties": {
    "category":  {"type": "string", "enum": ["LEVE", "UTILITARIO", "leve", "utilitario"]},
    "usage":     {"type": "string", "enum": ["PARTICULAR", "COMERCIAL", "particular", "comercial"]},
    "rawType":   {"type": "string"},
    "brand":     {"type": "string", "minLength": 1},
    "model":     {"type": "string", "minLength": 1},
    "fipeValue": {"type": "number", "minimum": 0}
  }
}`

var inputSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["vehicle"],
  "properties": {
    "vehicle": ` + VehicleSchema + `
  }
}`)
