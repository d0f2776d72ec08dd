package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jacobsa/go-serial/serial"
	"github.com/sigurn/crc16"
)

// Use CRC16_ARC which matches the DSMR P1 specification
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// SerialSource reads telegrams from a P1 port. The meter pushes a telegram
// every second; Fetch returns the next complete one.
type SerialSource struct {
	port        string
	baudrate    uint
	validateCRC bool

	mu         sync.Mutex
	serialPort io.ReadWriteCloser
	reader     *bufio.Reader

	open func(serial.OpenOptions) (io.ReadWriteCloser, error)
}

func NewSerialSource(port string, baudrate uint, validateCRC bool) *SerialSource {
	if baudrate == 0 {
		baudrate = 115200
	}
	return &SerialSource{
		port:        port,
		baudrate:    baudrate,
		validateCRC: validateCRC,
		open:        serial.Open,
	}
}

// Fetch blocks until a full telegram was read or ctx is done. The port is
// opened lazily and closed after any read failure, so the next call
// reconnects.
func (p *SerialSource) Fetch(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.serialPort == nil {
		if err := p.connect(); err != nil {
			return nil, &FetchError{Source: p.port, Err: err}
		}
	}

	type result struct {
		telegram string
		err      error
	}
	done := make(chan result, 1)
	reader := p.reader
	go func() {
		telegram, err := readTelegram(reader)
		done <- result{telegram, err}
	}()

	select {
	case <-ctx.Done():
		// Closing the port unblocks the pending read.
		p.disconnect()
		return nil, &FetchError{Source: p.port, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			p.disconnect()
			return nil, &FetchError{Source: p.port, Err: res.err}
		}
		if p.validateCRC && !validateCRC(res.telegram) {
			return nil, &FetchError{Source: p.port, Err: ErrInvalidCRC}
		}
		return []byte(res.telegram), nil
	}
}

func (p *SerialSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnect()
	return nil
}

// Open the connection to the P1 port.
func (p *SerialSource) connect() error {
	options := serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := p.open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	p.serialPort = port
	p.reader = bufio.NewReader(port)
	return nil
}

func (p *SerialSource) disconnect() {
	if p.serialPort != nil {
		p.serialPort.Close()
		p.serialPort = nil
		p.reader = nil
	}
}

// readTelegram skips bytes until a "/" line and returns everything up to and
// including the "!" line.
func readTelegram(reader *bufio.Reader) (string, error) {
	var buffer strings.Builder
	var inTelegram bool

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}

		if strings.HasPrefix(line, "/") {
			// Start of telegram
			buffer.Reset()
			buffer.WriteString(line)
			inTelegram = true
		} else if inTelegram {
			buffer.WriteString(line)
			if strings.HasPrefix(strings.TrimSpace(line), "!") {
				// End of telegram
				return buffer.String(), nil
			}
		}
	}
}

// validateCRC checks the CRC16 over everything from "/" up to and including "!".
func validateCRC(telegram string) bool {
	data, footer, ok := strings.Cut(telegram, "!")
	if !ok || len(footer) < 4 {
		return false
	}

	calc := crc16.Checksum([]byte(data+"!"), crcTable)
	return strings.EqualFold(footer[:4], fmt.Sprintf("%04X", calc))
}
