package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "code %q has non-digit", code)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+258841234567", NormalizePhone(" +258 84 123-4567 "))
	assert.Equal(t, "258841234567", NormalizePhone("258 (84) 123.45.67"))
	assert.Equal(t, "", NormalizePhone("  "))
	// A plus sign only survives in the leading position.
	assert.Equal(t, "+258841234567", NormalizePhone("+258+84 123 4567"))
}

func TestSanitizeCode(t *testing.T) {
	assert.Equal(t, "123456", SanitizeCode(" 12 34-56 "))
	assert.Equal(t, "", SanitizeCode("abc"))
}

func TestPhoneHashIgnoresFormatting(t *testing.T) {
	a := PhoneHash("+258 84 123 4567")
	b := PhoneHash("+258841234567")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, PhoneHash("+258871234567"))
}
