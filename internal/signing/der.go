package signing

import (
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// p256Size is the byte width of each of r and s for ES256.
const p256Size = 32

var errInvalidDER = errors.New("invalid DER ECDSA signature")

// DERToJOSE converts an ASN.1 DER ECDSA signature into the fixed-width r||s
// form compact JWS requires.
func DERToJOSE(der []byte, size int) ([]byte, error) {
	var inner cryptobyte.String
	r, s := new(big.Int), new(big.Int)

	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, errInvalidDER
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.BitLen() > size*8 || s.BitLen() > size*8 {
		return nil, errInvalidDER
	}

	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out, nil
}
