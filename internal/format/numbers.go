package format

import (
	"fmt"
	"math/big"
	"time"
)

// FormatNumber adds thousand separators to n ("24,277,510").
func FormatNumber(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatGwei converts wei to gwei with two decimals. A nil amount (blocks
// before the London fork carry no base fee) renders as "-".
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	gwei := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9))
	f, _ := gwei.Float64()
	return fmt.Sprintf("%.2f gwei", f)
}

// dateLayout follows the JavaScript Date string layout, except that the
// parenthesised part is the zone abbreviation ("CET") where a browser prints
// the long zone name.
const dateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// FormatDate renders t in the local zone.
func FormatDate(t time.Time) string {
	return t.Local().Format(dateLayout)
}
