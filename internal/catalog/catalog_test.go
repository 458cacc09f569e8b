package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
)

func TestCatalogContainsAllFamilies(t *testing.T) {
	c := New()
	require.Len(t, c.Methods(), 5)
	for _, id := range []string{"mpesa", "emola", "paypal", "card", "bitcoin"} {
		m, ok := c.Get(id)
		require.True(t, ok, "method %s missing", id)
		assert.True(t, m.Type.IsValid())
		assert.Greater(t, m.Config.MaxAmount, m.Config.MinAmount)
	}
}

func TestValidateAmountPriorityOrder(t *testing.T) {
	m := Method{ID: "mpesa", Type: enums.MethodTypeMpesa, Config: MethodConfig{MinAmount: 10, MaxAmount: 5000}}

	cases := []struct {
		name    string
		amount  float64
		wantMsg string
	}{
		{"zero", 0, "Valor deve ser maior que zero"},
		{"negative", -5, "Valor deve ser maior que zero"},
		{"below minimum", 5, "Valor mínimo: 10 MZN"},
		{"above maximum", 5001, "Valor máximo: 5000 MZN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(tc.amount, m)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tc.wantMsg, typed.Message())
		})
	}

	assert.NoError(t, ValidateAmount(10, m), "minimum is inclusive")
	assert.NoError(t, ValidateAmount(5000, m), "maximum is inclusive")
	assert.NoError(t, ValidateAmount(100, m))
}

func TestValidateDetailsMobileMoneyRequiresPhone(t *testing.T) {
	err := ValidateDetails(enums.MethodTypeMpesa, map[string]string{})
	require.Error(t, err)
	assert.Equal(t, "Número de telefone é obrigatório", pkgerrors.As(err).Message())

	err = ValidateDetails(enums.MethodTypeEmola, map[string]string{FieldPhoneNumber: "  "})
	require.Error(t, err)

	assert.NoError(t, ValidateDetails(enums.MethodTypeMpesa, map[string]string{FieldPhoneNumber: "+258841234567"}))
}

func TestValidateDetailsCardRequiresAllFields(t *testing.T) {
	partial := map[string]string{FieldCardNumber: "4111111111111111"}
	err := ValidateDetails(enums.MethodTypeCard, partial)
	require.Error(t, err)
	assert.Equal(t, "Todos os campos do cartão são obrigatórios", pkgerrors.As(err).Message())

	full := map[string]string{
		FieldCardNumber: "4111111111111111",
		FieldCardExpiry: "12/27",
		FieldCardCVV:    "123",
		FieldCardHolder: "ANA MACHAVA",
	}
	assert.NoError(t, ValidateDetails(enums.MethodTypeCard, full))
}

func TestValidateDetailsPaypalAndBitcoinCollectNothing(t *testing.T) {
	assert.NoError(t, ValidateDetails(enums.MethodTypePaypal, nil))
	assert.NoError(t, ValidateDetails(enums.MethodTypeBitcoin, map[string]string{}))
}

func TestFinalTotalIdentityWithoutFee(t *testing.T) {
	m := Method{Config: MethodConfig{MinAmount: 10, MaxAmount: 5000}}
	assert.Equal(t, 250.0, FinalTotal(250, m))
}

func TestFinalTotalAppliesFeeOnce(t *testing.T) {
	m := Method{Config: MethodConfig{MinAmount: 100, MaxAmount: 100000, ProcessingFee: 3.5}}
	assert.Equal(t, 103.5, FinalTotal(100, m))
	assert.Equal(t, 1035.0, FinalTotal(1000, m))

	// Deterministic: the same inputs always produce the same total.
	assert.Equal(t, FinalTotal(777.77, m), FinalTotal(777.77, m))
}

func TestFinalTotalRoundsToCents(t *testing.T) {
	m := Method{Config: MethodConfig{ProcessingFee: 4.5}}
	// 100.10 * 4.5% = 4.5045, total 104.6045 rounds to 104.60.
	assert.Equal(t, 104.6, FinalTotal(100.1, m))
}
