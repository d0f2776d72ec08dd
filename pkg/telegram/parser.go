// Package telegram turns raw P1 telegrams into tariff readings.
//
// A telegram is a "/" header line followed by OBIS register lines such as
//
//	1-0:1.8.1(001234.567*kWh)
//	0-0:96.14.0(0002)
//
// and a "!" checksum footer, which is skipped and not validated.
package telegram

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

const kwhSuffix = "*kWh"

// Telegram is the interpreted content of one transmission.
type Telegram struct {
	Header   string
	Active   types.Tariff
	Readings []types.Reading
}

// Parse returns one reading per tariff whose accumulator registers appear in
// raw, all stamped with at. It is all-or-nothing: on error no readings are
// returned.
func Parse(raw []byte, at time.Time) ([]types.Reading, error) {
	t, err := ParseTelegram(raw, at)
	if err != nil {
		return nil, err
	}
	return t.Readings, nil
}

func ParseTelegram(raw []byte, at time.Time) (*Telegram, error) {
	lex := NewLexer(raw)

	header, err := expect(lex, Comment)
	if err != nil {
		return nil, err
	}

	var (
		running   = map[types.Tariff]types.Joule{}
		active    types.Tariff
		hasActive bool
	)

	for {
		tok, err := lex.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if tok.Kind != Code {
			return nil, unexpected(tok)
		}

		value, err := expect(lex, Value)
		if err != nil {
			return nil, err
		}

		reg := LookupRegister(tok.Text)
		switch reg {
		case Import1, Export1, Import2, Export2:
			v, err := parseKwh(value.Text)
			if err != nil {
				return nil, &ParseError{Code: tok.Text, Value: value.Text, Err: err}
			}
			tariff, _ := reg.Tariff()
			running[tariff] = reg.Apply(running[tariff], v)

		case TariffIndicator:
			n, err := strconv.ParseUint(strings.TrimSpace(value.Text), 10, 16)
			if err != nil {
				return nil, &ParseError{Code: tok.Text, Value: value.Text, Err: ErrInvalidValue}
			}
			active, err = types.ParseTariff(n)
			if err != nil {
				return nil, &ParseError{Code: tok.Text, Value: value.Text, Err: err}
			}
			hasActive = true

		default:
			// Unknown registers may carry several values, e.g. a gas
			// reading with its own capture time.
			skipValues(lex)
		}
	}

	if !hasActive {
		return nil, ErrMissingTariffIndicator
	}

	t := &Telegram{Header: header.Text, Active: active}
	for _, tariff := range types.Tariffs {
		if energy, ok := running[tariff]; ok {
			t.Readings = append(t.Readings, types.NewReading(tariff, energy, at))
		}
	}
	return t, nil
}

func expect(lex *Lexer, kind TokenKind) (Token, error) {
	tok, err := lex.Next()
	if err == io.EOF {
		return Token{}, ErrEOF
	}
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, unexpected(tok)
	}
	return tok, nil
}

func skipValues(lex *Lexer) {
	for {
		tok, err := lex.Peek()
		if err != nil || tok.Kind != Value {
			return
		}
		lex.Next()
	}
}

func unexpected(tok Token) error {
	return &SyntaxError{Offset: tok.Offset, Found: tok.Kind.String() + " " + tok.Text, Err: ErrUnexpectedToken}
}

func parseKwh(value string) (types.Joule, error) {
	number, ok := strings.CutSuffix(value, kwhSuffix)
	if !ok {
		return 0, ErrInvalidValue
	}
	energy, err := types.ParseKwh(number)
	if errors.Is(err, types.ErrKwhSyntax) {
		return 0, errors.Join(ErrInvalidValue, err)
	}
	return energy, err
}
