package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/AyushGupta011/Velyra/internal/order"
)

const (
	MetaSubtotal        = "subtotal"
	MetaShipping        = "shipping"
	MetaTax             = "tax"
	MetaUserID          = "userId"
	MetaShippingAddress = "shippingAddress"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Metadata is the typed form of the key/value bag attached at checkout.
// Absent keys stay nil or empty.
type Metadata struct {
	Subtotal        *decimal.Decimal
	Shipping        *decimal.Decimal
	Tax             *decimal.Decimal
	UserID          string
	ShippingAddress *order.ShippingAddress
}

// HasBreakdown reports whether all three total components were supplied.
func (m Metadata) HasBreakdown() bool {
	return m.Subtotal != nil && m.Shipping != nil && m.Tax != nil
}

// ParseMetadata validates raw session metadata. Blank values are treated as
// absent; anything present must be well formed.
func ParseMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata
	var err error

	if m.Subtotal, err = parseAmount(raw, MetaSubtotal); err != nil {
		return Metadata{}, err
	}
	if m.Shipping, err = parseAmount(raw, MetaShipping); err != nil {
		return Metadata{}, err
	}
	if m.Tax, err = parseAmount(raw, MetaTax); err != nil {
		return Metadata{}, err
	}

	// The user id is only a hint for attribution; the reconciler decides
	// what to do with one it cannot resolve.
	m.UserID = strings.TrimSpace(raw[MetaUserID])

	if v := strings.TrimSpace(raw[MetaShippingAddress]); v != "" {
		var addr order.ShippingAddress
		if err := json.Unmarshal([]byte(v), &addr); err != nil {
			return Metadata{}, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, MetaShippingAddress, err)
		}
		if err := validate.Struct(addr); err != nil {
			return Metadata{}, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, MetaShippingAddress, err)
		}
		m.ShippingAddress = &addr
	}
	return m, nil
}

func parseAmount(raw map[string]string, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(raw[key])
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a decimal", ErrInvalidMetadata, key)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidMetadata, key)
	}
	d = d.Round(2)
	return &d, nil
}

// EncodeMetadata is the inverse of ParseMetadata for values set at checkout.
func EncodeMetadata(m Metadata) (map[string]string, error) {
	out := map[string]string{}
	if m.Subtotal != nil {
		out[MetaSubtotal] = m.Subtotal.StringFixed(2)
	}
	if m.Shipping != nil {
		out[MetaShipping] = m.Shipping.StringFixed(2)
	}
	if m.Tax != nil {
		out[MetaTax] = m.Tax.StringFixed(2)
	}
	if m.UserID != "" {
		out[MetaUserID] = m.UserID
	}
	if m.ShippingAddress != nil {
		b, err := json.Marshal(m.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("marshal shipping address: %w", err)
		}
		out[MetaShippingAddress] = string(b)
	}
	return out, nil
}
