package photoshare

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatBytes renders n as a short human readable size, e.g. "1.5 MB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	i = min(i, len(units)-1)
	v := float64(n) / math.Pow(1024, float64(i))
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	return s + " " + units[i]
}

// FormatPrice renders a rupee amount with Indian digit grouping, e.g. 250000
// becomes "2,50,000". Fractions are kept up to two places.
func FormatPrice(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := math.Floor(v)
	frac := math.Round((v - whole) * 100)
	if frac >= 100 {
		whole++
		frac = 0
	}

	digits := strconv.FormatFloat(whole, 'f', 0, 64)
	var b strings.Builder
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		// Leading groups are two digits wide.
		first := len(head) % 2
		if first > 0 {
			b.WriteString(head[:first])
		}
		for i := first; i < len(head); i += 2 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(head[i : i+2])
		}
		b.WriteByte(',')
		b.WriteString(tail)
	} else {
		b.WriteString(digits)
	}

	s := b.String()
	if frac > 0 {
		s += strings.TrimRight(fmt.Sprintf(".%02d", int(frac)), "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}
