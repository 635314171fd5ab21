package booking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/speps/go-hashids/v2"
)

// ConfirmationCodeGenerator produces the short human-readable code handed to
// the venue once a booking is paid. The hashids segment is a non-guessable
// stand-in for the raw booking id; the HMAC tag ties the code to this
// deployment's secret.
type ConfirmationCodeGenerator struct {
	secret string
	h      *hashids.HashID
}

func NewConfirmationCodeGenerator(secret string) (*ConfirmationCodeGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = secret
	hd.MinLength = 6
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	return &ConfirmationCodeGenerator{secret: secret, h: h}, nil
}

func (g *ConfirmationCodeGenerator) Generate(bookingID int64) string {
	nonce := uuid.NewString()

	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(fmt.Sprintf("bid:%d|nonce:%s", bookingID, nonce)))

	sum := mac.Sum(nil)
	tag := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum)

	ref, err := g.h.EncodeInt64([]int64{bookingID})
	if err != nil {
		ref = fmt.Sprintf("%d", bookingID)
	}

	return fmt.Sprintf(
		"VB-%s-%s",
		strings.ToUpper(ref),
		strings.ToUpper(tag[:4]),
	)
}
