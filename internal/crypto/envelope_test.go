package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

const testIterations = 1000

func TestEnvelope_RoundTrip(t *testing.T) {
	codec := NewCodec(testIterations)
	cases := [][]byte{
		{},
		[]byte("a"),
		[]byte("hello world"),
		[]byte("ünïcödé ✓"),
		bytes.Repeat([]byte{0x00, 0xff}, 4096),
	}
	random := make([]byte, 1<<16)
	if _, err := rand.Read(random); err != nil {
		t.Fatal(err)
	}
	cases = append(cases, random)

	for _, plaintext := range cases {
		for _, password := range []string{"", "pw", "correct horse battery staple"} {
			env, err := codec.Encode(plaintext, password)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := codec.Decode(env, password)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Fatalf("round trip mismatch for %d bytes", len(plaintext))
			}
		}
	}
}

func TestEnvelope_WrongPassword(t *testing.T) {
	codec := NewCodec(testIterations)
	env, err := codec.Encode([]byte("secret"), "right")
	if err != nil {
		t.Fatal(err)
	}
	for _, pw := range []string{"wrong", "", "Right", "right "} {
		if _, err := codec.Decode(env, pw); !errors.Is(err, ErrDecryption) {
			t.Fatalf("password %q: want ErrDecryption, got %v", pw, err)
		}
	}
}

func TestEnvelope_FreshSaltAndNonce(t *testing.T) {
	codec := NewCodec(testIterations)
	a, _ := codec.Encode([]byte("same"), "same")
	b, _ := codec.Encode([]byte("same"), "same")
	if a == b {
		t.Fatalf("two encodings of the same input must differ")
	}
	rawA, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(a, v2Prefix))
	rawB, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(b, v2Prefix))
	if bytes.Equal(rawA[4:4+saltSize], rawB[4:4+saltSize]) {
		t.Fatalf("salt reused")
	}
	if bytes.Equal(rawA[4+saltSize:4+saltSize+nonceSize], rawB[4+saltSize:4+saltSize+nonceSize]) {
		t.Fatalf("nonce reused")
	}
}

func TestEnvelope_TamperRawBytes(t *testing.T) {
	codec := NewCodec(testIterations)
	env, err := codec.Encode([]byte("tamper me"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(env, v2Prefix))
	if err != nil {
		t.Fatal(err)
	}
	for i := range raw {
		mutated := bytes.Clone(raw)
		mutated[i] ^= 0x01
		bad := v2Prefix + base64.StdEncoding.EncodeToString(mutated)
		if _, err := codec.Decode(bad, "pw"); !errors.Is(err, ErrDecryption) {
			t.Fatalf("flip at byte %d: want ErrDecryption, got %v", i, err)
		}
	}
}

func TestEnvelope_TamperText(t *testing.T) {
	codec := NewCodec(testIterations)
	env, err := codec.Encode([]byte("tamper the text"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	// Characters past the encoded header only touch nonce, ciphertext and tag.
	start := len(v2Prefix) + (4+saltSize)*4/3 + 1
	positions := []int{0, 1, 2}
	for i := start; i < len(env); i++ {
		positions = append(positions, i)
	}
	for _, i := range positions {
		mutated := []byte(env)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		if _, err := codec.Decode(string(mutated), "pw"); !errors.Is(err, ErrDecryption) {
			t.Fatalf("flip at char %d: want ErrDecryption, got %v", i, err)
		}
	}
}

func TestEnvelope_Truncated(t *testing.T) {
	codec := NewCodec(testIterations)
	for _, env := range []string{"", "v2:", "v2:AAAA", "AAAA", "not base64!"} {
		if _, err := codec.Decode(env, "pw"); !errors.Is(err, ErrDecryption) {
			t.Fatalf("%q: want ErrDecryption, got %v", env, err)
		}
	}
}

func TestEnvelope_IterationsTravelWithEnvelope(t *testing.T) {
	env, err := NewCodec(2000).Encode([]byte("x"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewCodec(testIterations).Decode(env, "pw")
	if err != nil || string(got) != "x" {
		t.Fatalf("decode with different codec settings: %q %v", got, err)
	}
}

func TestEnvelope_LegacyLayout(t *testing.T) {
	gcm, err := newGCM(deriveKey("pw", legacySalt, legacyIterations))
	if err != nil {
		t.Fatal(err)
	}
	nonce := make([]byte, nonceSize)
	_, _ = rand.Read(nonce)
	legacy := base64.StdEncoding.EncodeToString(gcm.Seal(bytes.Clone(nonce), nonce, []byte("old secret"), nil))

	if !IsLegacyEnvelope(legacy) {
		t.Fatalf("legacy envelope not recognised")
	}
	codec := NewCodec(testIterations)
	got, err := codec.Decode(legacy, "pw")
	if err != nil {
		t.Fatalf("legacy decode: %v", err)
	}
	if string(got) != "old secret" {
		t.Fatalf("got %q", got)
	}
	if _, err := codec.Decode(legacy, "nope"); !errors.Is(err, ErrDecryption) {
		t.Fatalf("want ErrDecryption, got %v", err)
	}

	fresh, _ := codec.Encode([]byte("x"), "pw")
	if IsLegacyEnvelope(fresh) {
		t.Fatalf("new envelopes must be versioned")
	}
}
