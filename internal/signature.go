package internal

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"

	"gitee.com/golang-module/dongle"

	"datatrans/config"
)

// Signer computes and verifies the sign2 signature exchanged with the gateway.
// The signature is HMAC-MD5 over merchant id, amount, currency and the
// transaction identifier, in exactly that order, hex encoded. Field order and
// value formatting are part of the wire contract: the amount is the raw
// minor-unit string, never a decimal.
//
// Keys are held in trial order with the active key first. Outbound requests
// are signed with the active key only; verification tries every configured
// key so callbacks signed just before a key rotation still verify.
type Signer struct {
	merchantID string
	keys       []string
}

// NewSigner builds a signer from the configured key material. The configured
// keys are hex encoded; bad or missing key material is a fatal configuration
// error, no valid redirect can be produced without it.
func NewSigner(conf *config.Config) (*Signer, error) {
	material := conf.HmacKeys()
	if len(material) == 0 {
		return nil, fmt.Errorf("no HMAC key configured")
	}
	keys := make([]string, 0, len(material))
	for _, encoded := range material {
		key, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode HMAC key: %w", err)
		}
		keys = append(keys, string(key))
	}
	return &Signer{
		merchantID: conf.Gateway.MerchantID,
		keys:       keys,
	}, nil
}

// Sign computes sign2 with the active key. The identifier is the reference
// number on outbound redirects and the gateway transaction id on merchant
// initiated transaction requests.
func (s *Signer) Sign(amount, currency, identifier string) string {
	return s.signWith(s.keys[0], amount, currency, identifier)
}

// Verify recomputes the signature from the reported amount, currency and
// transaction id and compares in constant time. A missing signature never
// verifies.
func (s *Signer) Verify(sign2, amount, currency, identifier string) bool {
	if sign2 == "" {
		return false
	}
	for _, key := range s.keys {
		expected := s.signWith(key, amount, currency, identifier)
		if hmac.Equal([]byte(expected), []byte(sign2)) {
			return true
		}
	}
	return false
}

func (s *Signer) signWith(key, amount, currency, identifier string) string {
	message := s.merchantID + amount + currency + identifier
	return dongle.Encrypt.FromString(message).ByHmacMd5(key).ToHexString()
}
