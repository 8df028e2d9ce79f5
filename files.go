/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// humanReadableSize formats a byte count with SI prefixes, e.g. "1.5 kB".
func humanReadableSize[T ~int | ~int64](bytes T) string {
	const unit = 1000

	n := int64(bytes)
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	value := float64(n)
	exp := -1
	for value >= unit && exp < len("kMGTPE")-1 {
		value /= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", value, "kMGTPE"[exp])
}
