package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatrans/config"
)

const (
	testHmacKey  = "1ab5fe77bd734c382a6dfd355cd83525"
	testHmacKey2 = "9f2c06e38a174d248edc41cca71f4e29"
)

func testConfig() *config.Config {
	conf := &config.Config{}
	conf.Gateway.MerchantID = "1000011011"
	conf.Gateway.SecurityLevel = 2
	conf.Gateway.HmacKey = testHmacKey
	return conf
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner(testConfig())
	require.NoError(t, err)

	sign2 := signer.Sign("1234", "EUR", "110001234")
	require.NotEmpty(t, sign2)
	assert.True(t, signer.Verify(sign2, "1234", "EUR", "110001234"))
}

func TestSignIsDeterministic(t *testing.T) {
	signer, err := NewSigner(testConfig())
	require.NoError(t, err)
	assert.Equal(t, signer.Sign("1234", "EUR", "110001234"), signer.Sign("1234", "EUR", "110001234"))
}

func TestVerifyRejectsChangedFields(t *testing.T) {
	signer, err := NewSigner(testConfig())
	require.NoError(t, err)
	sign2 := signer.Sign("1234", "EUR", "110001234")

	tests := []struct {
		name       string
		amount     string
		currency   string
		identifier string
	}{
		{name: "amount changed", amount: "1235", currency: "EUR", identifier: "110001234"},
		{name: "currency changed", amount: "1234", currency: "CHF", identifier: "110001234"},
		{name: "identifier changed", amount: "1234", currency: "EUR", identifier: "110001235"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, signer.Verify(sign2, tt.amount, tt.currency, tt.identifier))
		})
	}
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	signer, err := NewSigner(testConfig())
	require.NoError(t, err)
	assert.False(t, signer.Verify("", "1234", "EUR", "110001234"))
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	signer, err := NewSigner(testConfig())
	require.NoError(t, err)

	otherConf := testConfig()
	otherConf.Gateway.HmacKey = testHmacKey2
	other, err := NewSigner(otherConf)
	require.NoError(t, err)

	sign2 := other.Sign("1234", "EUR", "110001234")
	assert.False(t, signer.Verify(sign2, "1234", "EUR", "110001234"))
}

func TestVerifyTriesRotatedKey(t *testing.T) {
	// A callback signed with the previous key must still verify while both
	// keys are configured; outbound signing uses the active key only.
	conf := testConfig()
	conf.Gateway.HmacKey2 = testHmacKey2
	signer, err := NewSigner(conf)
	require.NoError(t, err)

	previousConf := testConfig()
	previousConf.Gateway.HmacKey = testHmacKey2
	previous, err := NewSigner(previousConf)
	require.NoError(t, err)

	sign2 := previous.Sign("1234", "EUR", "110001234")
	assert.True(t, signer.Verify(sign2, "1234", "EUR", "110001234"))
	assert.NotEqual(t, sign2, signer.Sign("1234", "EUR", "110001234"))
}

func TestNewSignerRequiresKeyMaterial(t *testing.T) {
	conf := testConfig()
	conf.Gateway.HmacKey = ""
	_, err := NewSigner(conf)
	assert.Error(t, err)
}

func TestNewSignerRejectsBadKeyMaterial(t *testing.T) {
	conf := testConfig()
	conf.Gateway.HmacKey = "not hex"
	_, err := NewSigner(conf)
	assert.Error(t, err)
}
