// Package printer renders bills as ESC/POS bytes and sends them to a network thermal printer.
package printer

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	esc = 0x1b
	gs  = 0x1d
)

var (
	cmdInit        = []byte{esc, '@'}
	cmdAlignCenter = []byte{esc, 'a', 1}
	cmdAlignLeft   = []byte{esc, 'a', 0}
	cmdDoubleH     = []byte{gs, '!', 0x01}
	cmdNormalSize  = []byte{gs, '!', 0x00}
	cmdBoldOn      = []byte{esc, 'E', 1}
	cmdBoldOff     = []byte{esc, 'E', 0}
	cmdFullCut     = []byte{gs, 'V', 0}
)

type Options struct {
	Codepage   byte
	FeedLines  byte
	TimeLayout string
	Location   *time.Location
}

func DefaultOptions() Options {
	return Options{
		FeedLines:  4,
		TimeLayout: "02/01/2006 15:04:05",
		Location:   time.Local,
	}
}

// Encode renders a bill. Text is folded to ASCII since most thermal printers lack a
// Vietnamese code page.
func Encode(b model.Bill, opts Options) []byte {
	if opts.TimeLayout == "" {
		opts.TimeLayout = DefaultOptions().TimeLayout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	var buf bytes.Buffer
	buf.Write(cmdInit)
	buf.Write([]byte{esc, 't', opts.Codepage})
	buf.Write(cmdAlignCenter)

	buf.Write(cmdDoubleH)
	writeLine(&buf, orderLine(b))
	buf.Write(cmdNormalSize)

	buf.Write(cmdBoldOn)
	writeLine(&buf, b.CustomerName)
	buf.Write(cmdBoldOff)
	if b.Phone != "" {
		writeLine(&buf, b.Phone)
	}

	writeLine(&buf, productLine(b))
	if !b.Amount.IsZero() {
		writeLine(&buf, "Tong: "+FormatAmount(b.Amount))
	}
	if c := strings.TrimSpace(b.Comment); c != "" {
		writeLine(&buf, c)
	}

	at := b.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	writeLine(&buf, at.In(opts.Location).Format(opts.TimeLayout))

	buf.Write(cmdAlignLeft)
	buf.Write([]byte{esc, 'd', opts.FeedLines})
	buf.Write(cmdFullCut)
	return buf.Bytes()
}

func orderLine(b model.Bill) string {
	switch {
	case b.SessionIndex > 0 && b.OrderCode != "":
		return fmt.Sprintf("#%d - %s", b.SessionIndex, b.OrderCode)
	case b.SessionIndex > 0:
		return fmt.Sprintf("#%d", b.SessionIndex)
	default:
		return b.OrderCode
	}
}

func productLine(b model.Bill) string {
	var parts []string
	if b.ProductCode != "" {
		parts = append(parts, b.ProductCode)
	}
	if b.ProductName != "" {
		parts = append(parts, b.ProductName)
	}
	line := strings.Join(parts, " - ")
	if b.Quantity > 0 {
		line += fmt.Sprintf(" x%d", b.Quantity)
	}
	return line
}

func writeLine(buf *bytes.Buffer, s string) {
	buf.WriteString(ToASCII(s))
	buf.WriteByte('\n')
}

// FormatAmount renders a VND amount with dot thousand separators, e.g. 350.000.
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

var dStroke = runes.Map(func(r rune) rune {
	switch r {
	case 'đ':
		return 'd'
	case 'Đ':
		return 'D'
	}
	return r
})

// ToASCII strips diacritics and replaces anything left outside printable ASCII with '?'.
func ToASCII(s string) string {
	t := transform.Chain(norm.NFD, dStroke, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	out := make([]byte, 0, len(folded))
	for _, r := range folded {
		switch {
		case r == '\n' || r == '\t':
			out = append(out, ' ')
		case r >= 0x20 && r < 0x7f:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return string(out)
}
