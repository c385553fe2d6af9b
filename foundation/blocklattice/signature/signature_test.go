package signature_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

func TestDigest(t *testing.T) {
	tt := []struct {
		size int
	}{
		{size: 8},
		{size: 32},
		{size: 64},
	}

	for i, tc := range tt {
		d := signature.Digest(tc.size, []byte("lattice"))
		if len(d) != tc.size {
			t.Errorf("[case:%d] error: wrong digest size, got %d, exp %d", i, len(d), tc.size)
		}

		split := signature.Digest(tc.size, []byte("lat"), []byte("tice"))
		if !bytes.Equal(d, split) {
			t.Errorf("[case:%d] error: digest should only depend on the concatenated input", i)
		}
	}
}

func TestSignVerify(t *testing.T) {
	key, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	hash := signature.HashOf([]byte("block"))
	sig := key.Sign(hash)

	if !signature.Verify(key.PublicKey(), hash, sig) {
		t.Fatal("signature should verify")
	}

	other := signature.HashOf([]byte("other block"))
	if signature.Verify(key.PublicKey(), other, sig) {
		t.Fatal("signature should not verify for a different hash")
	}

	otherKey, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}
	if signature.Verify(otherKey.PublicKey(), hash, sig) {
		t.Fatal("signature should not verify for a different key")
	}
}

func TestKeyFile(t *testing.T) {
	key, err := signature.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	path := filepath.Join(t.TempDir(), "node.key")
	if err := signature.SaveKey(path, key); err != nil {
		t.Fatalf("saving key: %s", err)
	}

	loaded, err := signature.LoadKey(path)
	if err != nil {
		t.Fatalf("loading key: %s", err)
	}

	if loaded.PublicKey() != key.PublicKey() {
		t.Fatalf("loaded key doesn't match, got %s, exp %s", loaded.PublicKey(), key.PublicKey())
	}
}

func TestHashText(t *testing.T) {
	hash := signature.HashOf([]byte("text"))

	data, err := json.Marshal(hash)
	if err != nil {
		t.Fatalf("marshaling hash: %s", err)
	}

	var got signature.Hash
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshaling hash: %s", err)
	}

	if got != hash {
		t.Fatalf("wrong hash, got %s, exp %s", got, hash)
	}

	if _, err := signature.ParseHash("0x1234"); err == nil {
		t.Fatal("short hash should not parse")
	}
}
