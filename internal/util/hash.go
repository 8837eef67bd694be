package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// SHA256File returns the hex sha256 of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return SHA256Reader(f)
}

func SHA256Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SameContent reports whether the two files hold identical bytes.
func SameContent(a, b string) (bool, error) {
	ha, err := SHA256File(a)
	if err != nil {
		return false, err
	}
	hb, err := SHA256File(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
