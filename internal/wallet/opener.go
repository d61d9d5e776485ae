package wallet

import (
	"context"
	"fmt"
	"io"

	qrcode "github.com/skip2/go-qrcode"
)

// TerminalOpener prints the deep link, optionally with a QR code a phone can scan.
type TerminalOpener struct {
	Out io.Writer
	QR  bool
}

func (o TerminalOpener) Open(_ context.Context, link string) error {
	if o.Out == nil {
		return fmt.Errorf("output is nil")
	}
	if o.QR {
		code, err := qrcode.New(link, qrcode.Low)
		if err == nil {
			if _, err := fmt.Fprintln(o.Out, code.ToSmallString(false)); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(o.Out, "qr code unavailable: %v\n", err)
		}
	}
	_, err := fmt.Fprintf(o.Out, "Open in wallet:\n%s\n", link)
	return err
}
