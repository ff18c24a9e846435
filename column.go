package xlstream

import (
	"fmt"
	"strconv"
)

// maxColumns bounds decoded indexes well above the XFD (16384) sheet limit
// while keeping the arithmetic far from int overflow.
const maxColumns = 1 << 24

// ColumnToIndex converts column letters to a 0-based index: A=0, Z=25, AA=26.
// Only upper case A-Z are accepted.
func ColumnToIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column", ErrMalformedReference)
	}
	n := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: column %q", ErrMalformedReference, letters)
		}
		n = n*26 + int(c-'A') + 1
		if n > maxColumns {
			return 0, fmt.Errorf("%w: column %q out of range", ErrMalformedReference, letters)
		}
	}
	return n - 1, nil
}

// IndexToColumn is the inverse of ColumnToIndex. Negative indexes yield "".
func IndexToColumn(index int) string {
	if index < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// SplitCellRef splits "AB12" into "AB" and 12. The row part is optional:
// "AB" yields row 0.
func SplitCellRef(ref string) (letters string, row int, err error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return "", 0, fmt.Errorf("%w: cell %q", ErrMalformedReference, ref)
	}
	if i == len(ref) {
		return ref, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return "", 0, fmt.Errorf("%w: cell %q", ErrMalformedReference, ref)
	}
	return ref[:i], row, nil
}

// CellRef formats a 0-based column and a 1-based row as "B7".
func CellRef(col, row int) string {
	return IndexToColumn(col) + strconv.Itoa(row)
}
