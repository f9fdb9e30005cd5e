package crypto

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ConfirmSigner asks the member before every signature. Anything but an
// explicit yes is reported as ErrDeclined.
type ConfirmSigner struct {
	Signer
	in  *bufio.Reader
	out io.Writer
}

func NewConfirmSigner(s Signer, in io.Reader, out io.Writer) *ConfirmSigner {
	return &ConfirmSigner{
		Signer: s,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

func (c *ConfirmSigner) Address() common.Address {
	return c.Signer.Address()
}

func (c *ConfirmSigner) SignHash(hash []byte) ([]byte, error) {
	fmt.Fprintf(c.out, "sign transaction %x as %s? [y/N]: ", hash, c.Signer.Address().Hex())
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return c.Signer.SignHash(hash)
	default:
		return nil, ErrDeclined
	}
}
