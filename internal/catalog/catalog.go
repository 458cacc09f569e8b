package catalog

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
)

// Currency is the only currency the storefront charges in.
const Currency = "MZN"

// MethodConfig bounds the amounts a method accepts. ProcessingFee is a
// percentage surcharge on the entered amount; zero means no fee.
type MethodConfig struct {
	MinAmount     float64
	MaxAmount     float64
	ProcessingFee float64
}

// Method is one entry of the static payment method catalog.
type Method struct {
	ID          string
	Type        enums.MethodType
	Name        string
	Description string
	Config      MethodConfig
}

// Catalog holds the immutable payment method table.
type Catalog struct {
	methods []Method
	byID    map[string]Method
}

// New returns the storefront's payment method catalog.
func New() *Catalog {
	methods := []Method{
		{
			ID:          "mpesa",
			Type:        enums.MethodTypeMpesa,
			Name:        "M-Pesa",
			Description: "Pagamento via M-Pesa (Vodacom)",
			Config:      MethodConfig{MinAmount: 10, MaxAmount: 100_000},
		},
		{
			ID:          "emola",
			Type:        enums.MethodTypeEmola,
			Name:        "e-Mola",
			Description: "Pagamento via e-Mola (Movitel)",
			Config:      MethodConfig{MinAmount: 10, MaxAmount: 100_000},
		},
		{
			ID:          "paypal",
			Type:        enums.MethodTypePaypal,
			Name:        "PayPal",
			Description: "Pagamento internacional via PayPal",
			Config:      MethodConfig{MinAmount: 50, MaxAmount: 500_000, ProcessingFee: 4.5},
		},
		{
			ID:          "card",
			Type:        enums.MethodTypeCard,
			Name:        "Cartão de Crédito",
			Description: "Visa ou Mastercard",
			Config:      MethodConfig{MinAmount: 100, MaxAmount: 1_000_000, ProcessingFee: 3.5},
		},
		{
			ID:          "bitcoin",
			Type:        enums.MethodTypeBitcoin,
			Name:        "Bitcoin",
			Description: "Pagamento em BTC via endereço dedicado",
			Config:      MethodConfig{MinAmount: 500, MaxAmount: 5_000_000, ProcessingFee: 1},
		},
	}

	byID := make(map[string]Method, len(methods))
	for _, m := range methods {
		byID[m.ID] = m
	}
	return &Catalog{methods: methods, byID: byID}
}

// Methods returns the catalog in declaration order.
func (c *Catalog) Methods() []Method {
	out := make([]Method, len(c.methods))
	copy(out, c.methods)
	return out
}

// Get looks up a method by its catalog ID.
func (c *Catalog) Get(id string) (Method, bool) {
	m, ok := c.byID[strings.TrimSpace(id)]
	return m, ok
}

// ValidateAmount enforces the method's amount bounds. Checks run in priority
// order: non-positive, below minimum, above maximum.
func ValidateAmount(amount float64, m Method) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Valor deve ser maior que zero")
	}
	if amount < m.Config.MinAmount {
		return pkgerrors.New(pkgerrors.CodeValidation, "Valor mínimo: "+formatAmount(m.Config.MinAmount)+" "+Currency)
	}
	if amount > m.Config.MaxAmount {
		return pkgerrors.New(pkgerrors.CodeValidation, "Valor máximo: "+formatAmount(m.Config.MaxAmount)+" "+Currency)
	}
	return nil
}

// Required metadata keys per method family.
const (
	FieldPhoneNumber = "phone_number"
	FieldCardNumber  = "card_number"
	FieldCardExpiry  = "card_expiry"
	FieldCardCVV     = "card_cvv"
	FieldCardHolder  = "card_holder"
)

// ValidateDetails checks that the method-specific fields are present and
// non-empty. PayPal and Bitcoin collect nothing at this step.
func ValidateDetails(methodType enums.MethodType, metadata map[string]string) error {
	switch {
	case methodType.IsMobileMoney():
		if strings.TrimSpace(metadata[FieldPhoneNumber]) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "Número de telefone é obrigatório")
		}
	case methodType == enums.MethodTypeCard:
		for _, key := range []string{FieldCardNumber, FieldCardExpiry, FieldCardCVV, FieldCardHolder} {
			if strings.TrimSpace(metadata[key]) == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "Todos os campos do cartão são obrigatórios")
			}
		}
	}
	return nil
}

// FinalTotal applies the method's processing fee to the entered amount. The
// fee is computed once on the amount and never compounded; totals round to
// two decimal places.
func FinalTotal(amount float64, m Method) float64 {
	if m.Config.ProcessingFee == 0 {
		return amount
	}
	base := decimal.NewFromFloat(amount)
	fee := base.Mul(decimal.NewFromFloat(m.Config.ProcessingFee)).Div(decimal.NewFromInt(100))
	total, _ := base.Add(fee).Round(2).Float64()
	return total
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
