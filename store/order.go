package store

import "encoding/json"

// Order is a persisted reservation or takeout request. The fixed fields
// cover everything the service itself reads; Extra keeps unknown fields
// sent by API clients so a merge never loses data.
type Order struct {
	ID        int64    `json:"id" bson:"id"`
	Phone     string   `json:"phone,omitempty" bson:"phone,omitempty"`
	Type      string   `json:"type,omitempty" bson:"type,omitempty"`
	Name      string   `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	Status    string   `json:"status,omitempty" bson:"status,omitempty"`
	Products  []string `json:"products" bson:"products"`
	Date      string   `json:"date,omitempty" bson:"date,omitempty"`
	PartySize int      `json:"party_size,omitempty" bson:"party_size,omitempty"`
	Time      string   `json:"time,omitempty" bson:"time,omitempty"`
	Timestamp string   `json:"timestamp" bson:"timestamp"`

	Extra map[string]any `json:"-" bson:",inline"`
}

// TypeReservation and TypeTakeout are the record types the bot produces.
// The direct API accepts any string.
const (
	TypeReservation = "reservation"
	TypeTakeout     = "takeout"
)

// Recognized status values. Anything else is stored but triggers no
// customer notification.
const (
	StatusPending       = "pending"
	StatusInPreparation = "in_preparation"
	StatusReady         = "ready"
	StatusDelivered     = "delivered"
)

var knownFields = map[string]struct{}{
	"id": {}, "phone": {}, "type": {}, "customer_name": {}, "status": {},
	"products": {}, "date": {}, "party_size": {}, "time": {}, "timestamp": {},
}

// Apply merges patch into the order field by field. The id is immutable
// and the timestamp is owned by the store, so both are ignored here.
// Unknown keys land in Extra.
func (o *Order) Apply(patch Patch) {
	for key, value := range patch {
		switch key {
		case "id", "timestamp":
		case "phone":
			o.Phone = asString(value)
		case "type":
			o.Type = asString(value)
		case "customer_name":
			o.Name = asString(value)
		case "status":
			o.Status = asString(value)
		case "products":
			o.Products = asStringSlice(value)
		case "date":
			o.Date = asString(value)
		case "party_size":
			o.PartySize = asInt(value)
		case "time":
			o.Time = asString(value)
		default:
			if o.Extra == nil {
				o.Extra = make(map[string]any)
			}
			o.Extra[key] = value
		}
	}
}

// MarshalJSON inlines Extra next to the fixed fields. Fixed fields win on
// a key collision.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	data, err := json.Marshal(plain(o))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return data, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range o.Extra {
		if _, taken := merged[key]; !taken {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits incoming keys between the fixed fields and Extra.
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range knownFields {
		delete(raw, key)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*o = Order(p)
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func asStringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
