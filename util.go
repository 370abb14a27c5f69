package main

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
)

// Unambiguous uppercase alphanumerics: no I/O/0/1
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLen = 5

// GenerateCode returns a random human-typable room code
func GenerateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}

// UniqueName appends a random 4-digit suffix so display names never collide
func UniqueName(name string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(9000))
	return fmt.Sprintf("%s#%d", name, 1000+n.Int64())
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}
