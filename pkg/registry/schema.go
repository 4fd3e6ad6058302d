// pkg/registry/schema.go
package registry

// Inquiry kinds routed by the inquiry handler.
const (
	InquiryPrice        = "price_check"
	InquiryAvailability = "availability_check"
	InquiryLocation     = "location_info"
	InquiryGeneral      = "general_qa"
)

// InquiryOrder is the precedence used when a message matches several kinds.
var InquiryOrder = []string{InquiryPrice, InquiryAvailability, InquiryLocation}

// TokenTables holds the lexical tables behind intent refinement and inquiry
// routing. Entries are matched after text normalization, so spelling
// variants of the same word need not be listed twice.
type TokenTables struct {
	Version           string              `json:"version"`
	Confirm           []string            `json:"confirm"`
	Cancel            []string            `json:"cancel"`
	Reject            []string            `json:"reject"`
	CorrectionConfirm []string            `json:"correctionConfirm"`
	Inquiry           map[string][]string `json:"inquiry"`
}

// TokenTablesSchema is the JSON schema a token-table file must satisfy.
const TokenTablesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version"],
  "additionalProperties": false,
  "definitions": {
    "tokens": {
      "type": "array",
      "items": {"type": "string", "minLength": 1},
      "uniqueItems": true
    }
  },
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "confirm": {"$ref": "#/definitions/tokens"},
    "cancel": {"$ref": "#/definitions/tokens"},
    "reject": {"$ref": "#/definitions/tokens"},
    "correctionConfirm": {"$ref": "#/definitions/tokens"},
    "inquiry": {
      "type": "object",
      "propertyNames": {"enum": ["price_check", "availability_check", "location_info"]},
      "additionalProperties": {"$ref": "#/definitions/tokens"}
    }
  }
}`

// Default returns the built-in Egyptian Arabic and English tables.
func Default() *TokenTables {
	return &TokenTables{
		Version: "builtin",
		Confirm: []string{
			"تمام", "ok", "اه", "نعم", "صح", "ماشي", "اكيد", "موافق", "تأكيد",
			"اوك", "tmam", "aywa", "👍", "مظبوط", "كدة", "كده", "اوكي", "حاضر",
			"ايوه", "yes", "okay", "confirm", "sure",
		},
		Cancel: []string{
			"خلاص", "مش عايز", "الغي", "إلغاء", "ابدأ من جديد", "cancel",
		},
		Reject: []string{
			"غلط", "عدل", "غير", "لأ", "لأه", "no",
		},
		CorrectionConfirm: []string{
			"صح", "اه", "نعم", "اكيد", "ده صح", "دي صح", "اه ده", "اه دي", "ايوه", "yes",
		},
		Inquiry: map[string][]string{
			InquiryPrice: {
				"سعر", "اسعار", "بكام", "كام", "تمن", "مقدم", "قسط", "تقسيط", "اقساط",
				"price", "prices", "cost", "installments", "down payment",
			},
			InquiryAvailability: {
				"متاح", "متاحه", "متوفر", "موجود", "فيه ايه", "available", "availability",
			},
			InquiryLocation: {
				"فين", "مكان", "موقع", "مناطق", "where", "location", "areas",
			},
		},
	}
}
