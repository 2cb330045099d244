// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package fingerprint

const (
	vowels     = "aeiouy"
	consonants = "bcdfghklmnprstvzx"
)

// FormatBubbleBabble encodes d as pronounceable five letter tuples separated by
// dashes and framed by 'x'.
func FormatBubbleBabble(d []byte) string {
	rounds := len(d)/2 + 1
	out := make([]byte, 0, rounds*6)
	seed := 1
	out = append(out, 'x')
	for i := 0; i < rounds; i++ {
		if i+1 < rounds || len(d)%2 != 0 {
			b0 := int(d[2*i])
			out = append(out,
				vowels[((b0>>6)&3+seed)%6],
				consonants[(b0>>2)&15],
				vowels[((b0&3)+seed/6)%6])
			if i+1 < rounds {
				b1 := int(d[2*i+1])
				out = append(out,
					consonants[(b1>>4)&15],
					'-',
					consonants[b1&15])
				seed = (seed*5 + b0*7 + b1) % 36
			}
		} else {
			out = append(out, vowels[seed%6], consonants[16], vowels[seed/6])
		}
	}
	out = append(out, 'x')
	return string(out)
}
