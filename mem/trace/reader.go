// Package trace reads memory access traces and records what the translation
// path does with them.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
)

// ErrMalformedRecord reports a trace line that is not an access record.
var ErrMalformedRecord = errors.New("malformed trace record")

// Reader parses a text trace with one access per line. A record is an
// address followed by R or W, separated by spaces, tabs, or a comma. The
// address may be decimal or 0x-prefixed hexadecimal. Blank lines and lines
// starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
	layout  vm.AddressLayout
	line    int
}

// NewReader creates a Reader that accepts addresses inside the layout's
// address space.
func NewReader(r io.Reader, layout vm.AddressLayout) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		layout:  layout,
	}
}

// Line returns the number of the last line read, starting from 1.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next access. It returns io.EOF after the last record.
func (r *Reader) Next() (vm.Access, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		access, err := r.parse(text)
		if err != nil {
			return vm.Access{}, fmt.Errorf("line %d: %w", r.line, err)
		}

		return access, nil
	}

	err := r.scanner.Err()
	if err != nil {
		return vm.Access{}, err
	}

	return vm.Access{}, io.EOF
}

// CountRecords returns the number of lines that are neither blank nor
// comments. The lines are not validated.
func CountRecords(r io.Reader) (uint64, error) {
	scanner := bufio.NewScanner(r)
	count := uint64(0)

	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text != "" && !strings.HasPrefix(text, "#") {
			count++
		}
	}

	return count, scanner.Err()
}

func (r *Reader) parse(text string) (vm.Access, error) {
	fields := strings.FieldsFunc(text, func(c rune) bool {
		return c == ' ' || c == '\t' || c == ','
	})

	if len(fields) != 2 {
		return vm.Access{}, fmt.Errorf("%w: want <address> <R|W>, got %q",
			ErrMalformedRecord, text)
	}

	addr, err := parseAddress(fields[0])
	if err != nil {
		return vm.Access{}, fmt.Errorf("%w: bad address %q",
			ErrMalformedRecord, fields[0])
	}

	err = r.layout.Check(addr)
	if err != nil {
		return vm.Access{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	access := vm.Access{Address: addr}

	switch strings.ToUpper(fields[1]) {
	case "R":
	case "W":
		access.IsWrite = true
	default:
		return vm.Access{}, fmt.Errorf("%w: unknown access kind %q",
			ErrMalformedRecord, fields[1])
	}

	return access, nil
}

// parseAddress reads a decimal address, or a hexadecimal one prefixed with
// 0x. Leading zeros do not switch to octal.
func parseAddress(field string) (uint64, error) {
	if len(field) > 2 && field[0] == '0' && (field[1] == 'x' || field[1] == 'X') {
		return strconv.ParseUint(field[2:], 16, 64)
	}

	return strconv.ParseUint(field, 10, 64)
}
