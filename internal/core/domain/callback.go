package domain

// CallbackField is one received key/value pair. Order is kept because the gateway
// signs the fields in the order it sends them.
type CallbackField struct {
	Key   string
	Value string
}

// CallbackFields is the normalized, ordered callback payload.
type CallbackFields []CallbackField

// Get returns the first value stored under any of the given keys.
func (f CallbackFields) Get(keys ...string) string {
	for _, k := range keys {
		for _, field := range f {
			if field.Key == k {
				return field.Value
			}
		}
	}
	return ""
}

// Has reports whether key was received.
func (f CallbackFields) Has(key string) bool {
	for _, field := range f {
		if field.Key == key {
			return true
		}
	}
	return false
}

// ToMap flattens the fields for storage as metadata.
func (f CallbackFields) ToMap() map[string]any {
	m := make(map[string]any, len(f))
	for _, field := range f {
		m[field.Key] = field.Value
	}
	return m
}

// CallbackRecord is a gateway callback after flavour-specific field mapping.
type CallbackRecord struct {
	Flavour           SourceKind
	OrderID           string
	TransactionNumber string
	StatusCode        string // RESPCODE or booking status token
	GatewayMessage    string
	Amount            string
	Checksum          string
	ChecksumField     string
	Fields            CallbackFields
	ClientIP          string
}

// CallbackResult is what the handler reports back to the gateway.
type CallbackResult struct {
	Success      bool              `json:"success"`
	Status       TransactionStatus `json:"status"`
	OrderID      string            `json:"order_id"`
	SourceKind   SourceKind        `json:"-"`
	SourceID     string            `json:"-"`
	Message      string            `json:"message,omitempty"`
	Transitioned bool              `json:"-"`
	NotFound     bool              `json:"-"`
}
