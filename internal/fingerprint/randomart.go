// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package fingerprint

import (
	"fmt"
	"strings"
)

// Field dimensions. Both are odd so the walk starts in the exact middle.
const (
	fieldBase = 8
	fieldY    = fieldBase + 1
	fieldX    = fieldBase*2 + 1
)

// Symbols for visit counts; the last two mark the start and end cells.
const augmentation = " .o+=*BOX@%&#/^SE"

// FormatRandomArt draws the "drunken bishop" walk for digest d. Each byte gives
// four diagonal moves, least significant bit pair first, clamped at the
// border. keyName and bits annotate the top border.
func FormatRandomArt(d []byte, keyName string, bits int) string {
	var field [fieldX][fieldY]int
	top := len(augmentation) - 1

	x, y := fieldX/2, fieldY/2
	for _, b := range d {
		input := int(b)
		for range 4 {
			if input&1 != 0 {
				x++
			} else {
				x--
			}
			if input&2 != 0 {
				y++
			} else {
				y--
			}
			x = min(max(x, 0), fieldX-1)
			y = min(max(y, 0), fieldY-1)
			if field[x][y] < top-2 {
				field[x][y]++
			}
			input >>= 2
		}
	}
	field[fieldX/2][fieldY/2] = top - 1
	field[x][y] = top

	var sb strings.Builder
	header := fmt.Sprintf("+--[%4s %4d]", keyName, bits)
	if len(header) > fieldX-1 {
		header = header[:fieldX-1]
	}
	sb.WriteString(header)
	for i := len(header) - 1; i < fieldX; i++ {
		sb.WriteByte('-')
	}
	sb.WriteString("+\n")

	for y := 0; y < fieldY; y++ {
		sb.WriteByte('|')
		for x := 0; x < fieldX; x++ {
			sb.WriteByte(augmentation[min(field[x][y], top)])
		}
		sb.WriteString("|\n")
	}

	sb.WriteByte('+')
	sb.WriteString(strings.Repeat("-", fieldX))
	sb.WriteByte('+')
	return sb.String()
}
