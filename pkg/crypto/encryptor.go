package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"filippo.io/age"
)

var (
	ErrNoKey     = errors.New("encryptor has no key")
	ErrNotSealed = errors.New("value is not sealed")
)

// sealedPrefix marks stored values so a plain JSON blob is never handed
// to age by mistake.
const sealedPrefix = "age:"

// Encryptor seals activity metadata at rest. New values are sealed to the
// primary identity. Retired identities only open values written before a
// key rotation.
type Encryptor struct {
	primary   *age.X25519Identity
	recipient age.Recipient
	keyring   []age.Identity
}

// NewEncryptor parses the primary AGE-SECRET-KEY plus any retired keys.
// An empty primary generates an ephemeral identity, so data sealed with it
// is unreadable after restart.
func NewEncryptor(primary string, retired ...string) (*Encryptor, error) {
	id, err := loadIdentity(primary)
	if err != nil {
		return nil, err
	}

	e := &Encryptor{
		primary:   id,
		recipient: id.Recipient(),
		keyring:   []age.Identity{id},
	}
	for i, key := range retired {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		old, err := age.ParseX25519Identity(key)
		if err != nil {
			return nil, fmt.Errorf("parsing retired identity %d: %w", i+1, err)
		}
		e.keyring = append(e.keyring, old)
	}
	return e, nil
}

// FromConfig builds the encryptor for a configured key ring. A blank
// primary returns nil with no error: metadata is then stored as plain
// JSON, and previously sealed values stay sealed.
func FromConfig(primary string, retired ...string) (*Encryptor, error) {
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return nil, nil
	}
	return NewEncryptor(primary, retired...)
}

func loadIdentity(key string) (*age.X25519Identity, error) {
	if key == "" {
		id, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
		return id, nil
	}
	id, err := age.ParseX25519Identity(key)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return id, nil
}

// GenerateKey returns a new identity string suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return id.String(), nil
}

// Seal encrypts plaintext to the primary identity and returns a
// printable value for a text column.
func (e *Encryptor) Seal(plaintext []byte) (string, error) {
	if e == nil {
		return "", ErrNoKey
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return "", fmt.Errorf("starting seal: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("sealing: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finishing seal: %w", err)
	}
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(buf.Bytes()), nil
}

// Open reverses Seal using any identity in the key ring.
func (e *Encryptor) Open(sealed string) ([]byte, error) {
	if e == nil {
		return nil, ErrNoKey
	}

	body, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return nil, ErrNotSealed
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decoding sealed value: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.keyring...)
	if err != nil {
		return nil, fmt.Errorf("opening sealed value: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading sealed value: %w", err)
	}
	return plaintext, nil
}

// Reseal opens a value sealed under any known key and seals it again to
// the primary. Used after a rotation to retire old keys.
func (e *Encryptor) Reseal(sealed string) (string, error) {
	plaintext, err := e.Open(sealed)
	if err != nil {
		return "", err
	}
	return e.Seal(plaintext)
}

func (e *Encryptor) PublicKey() string {
	return e.primary.Recipient().String()
}

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// RandomPassword returns a random password of n characters drawn from an
// alphabet without look-alike characters.
func RandomPassword(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}
	return string(out), nil
}
