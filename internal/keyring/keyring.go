// Package keyring checks that an installed vendor keyring holds the expected signing key.
package keyring

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/openpgp" //nolint:staticcheck // only key parsing is used, no signing or encryption
)

const armorHeader = "-----BEGIN PGP"

// FileReader is the subset of host.System needed to load a keyring
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// NormalizeFingerprint strips spaces and colons and upper-cases a fingerprint
func NormalizeFingerprint(fp string) string {
	fp = strings.NewReplacer(" ", "", ":", "").Replace(fp)
	return strings.ToUpper(fp)
}

// Fingerprints lists the primary key fingerprints in a binary or armored keyring
func Fingerprints(data []byte) ([]string, error) {
	var (
		entities openpgp.EntityList
		err      error
	)
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armorHeader)) {
		entities, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	} else {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyring: %w", err)
	}

	fps := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.PrimaryKey == nil {
			continue
		}
		fps = append(fps, strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint[:])))
	}
	return fps, nil
}

// Contains reports whether the keyring data holds a key with the fingerprint
func Contains(data []byte, fingerprint string) (bool, error) {
	want := NormalizeFingerprint(fingerprint)
	if want == "" {
		return false, errors.New("empty fingerprint")
	}

	fps, err := Fingerprints(data)
	if err != nil {
		return false, err
	}
	for _, fp := range fps {
		if fp == want {
			return true, nil
		}
	}
	return false, nil
}

// Verify loads the keyring at path and checks it for the fingerprint
func Verify(r FileReader, path, fingerprint string) (bool, error) {
	data, err := r.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read keyring %s: %w", path, err)
	}
	return Contains(data, fingerprint)
}
