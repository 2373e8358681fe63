// Package utils holds small helpers shared across the hub.
package utils

import (
	"encoding/binary"
	"fmt"
)

// ColorToHexARGB converts the signed 32-bit integer color the reader apps
// store for labels into ARGB hex form.
// Example: -65536 -> "#FFFF0000"
func ColorToHexARGB(color int) string {
	// Reinterpret as unsigned 32-bit (2's complement)
	colorUint := uint32(int32(color))

	// Convert to hex bytes (big-endian)
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, colorUint)

	return fmt.Sprintf("#%02X%02X%02X%02X", bytes[0], bytes[1], bytes[2], bytes[3])
}
