package cursorapi

// SessionToken authenticates dashboard requests. The cookie value is the
// user id and the access token joined by an URL-encoded "::".
type SessionToken struct {
	UserID string
	Secret string
}

// Valid reports whether both halves of the token are present.
func (t SessionToken) Valid() bool {
	return t.UserID != "" && t.Secret != ""
}

func (t SessionToken) cookieValue() string {
	return t.UserID + "%3A%3A" + t.Secret
}

// invoiceRequest is the monthly invoice POST body.
type invoiceRequest struct {
	Month              int  `json:"month"`
	Year               int  `json:"year"`
	IncludeUsageEvents bool `json:"includeUsageEvents"`
}

// invoiceItem is one raw invoice line. Cents stays a pointer: absence and
// zero mean different things to the parser.
type invoiceItem struct {
	Description string `json:"description"`
	Cents       *int   `json:"cents"`
}

// invoiceResponse is the raw monthly invoice payload.
type invoiceResponse struct {
	Items                    []invoiceItem `json:"items"`
	HasUnpaidMidMonthInvoice bool          `json:"hasUnpaidMidMonthInvoice"`
}

// premiumQuota is the per-model quota block of the usage endpoint. The
// request cap can be absent for unbounded plans.
type premiumQuota struct {
	NumRequests     int  `json:"numRequests"`
	MaxRequestUsage *int `json:"maxRequestUsage"`
}

// hardLimitResponse is the usage-based spending limit payload.
type hardLimitResponse struct {
	HardLimit           *float64 `json:"hardLimit"`
	NoUsageBasedAllowed bool     `json:"noUsageBasedAllowed"`
}
