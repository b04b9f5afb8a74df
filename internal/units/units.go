// Package units renders integer chain amounts in their display unit.
package units

import (
	"math/big"
	"strings"
)

// FormatUnitsTrim renders amount scaled down by 10^decimals, keeping at most
// maxFrac fractional digits and dropping trailing zeros.
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, fracPart := new(big.Int).QuoRem(abs, base, new(big.Int))

	out := intPart.String()
	if fracPart.Sign() != 0 && maxFrac > 0 {
		fracStr := fracPart.String()
		if len(fracStr) < int(decimals) {
			fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
		}
		if len(fracStr) > maxFrac {
			fracStr = fracStr[:maxFrac]
		}
		if fracStr = strings.TrimRight(fracStr, "0"); fracStr != "" {
			out += "." + fracStr
		}
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// FormatBalance renders amount at full precision followed by unit.
func FormatBalance(amount *big.Int, decimals uint8, unit string) string {
	v := FormatUnitsTrim(amount, decimals, int(decimals))
	if unit == "" {
		return v
	}
	return v + " " + unit
}

// Wei is the number of decimals of an ether amount.
const Wei = 18

func FormatEther(wei *big.Int) string {
	return FormatBalance(wei, Wei, "ETH")
}
