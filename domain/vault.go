package domain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// Format identifies the wire format of a stored seed blob.
type Format string

const (
	FormatUnknown Format = ""
	// FormatLegacyV1 is base64(iv||ciphertext), AES-256-CBC, with a salt that
	// depends only on the email.
	FormatLegacyV1 Format = "legacy-v1"
	// FormatSaltedV2 is <hexsalt>:base64(iv||ciphertext), AES-256-CBC.
	FormatSaltedV2 Format = "salted-v2"
	// FormatSealedV3 is v3$<iterations>$<hexsalt>:base64(nonce||ciphertext),
	// AES-256-GCM. Every new blob is written in this format.
	FormatSealedV3 Format = "sealed-v3"
)

const (
	DefaultKDFIterations = 100_000
	// legacy formats carry no iteration count
	legacyIterations = 100_000
	maxKDFIterations = 10_000_000

	saltLen = 16
	keyLen  = 32

	v3Prefix      = "v3$"
	saltDelimiter = ":"

	v1Label = "seed-vault:v1"
	v2Label = "seed-vault:v2"
	v3Label = "seed-vault:v3"
)

var errMalformedBlob = errors.New("malformed seed blob")

// Credentials bind a seed blob to one user.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) normalized() Credentials {
	return Credentials{
		Email:    strings.ToLower(strings.TrimSpace(c.Email)),
		Password: c.Password,
	}
}

// OpenedSeed is a decrypted mnemonic and the format it was stored in.
type OpenedSeed struct {
	Mnemonic string
	Format   Format
}

// NeedsUpgrade reports whether the blob should be rewritten as SealedV3.
func (o *OpenedSeed) NeedsUpgrade() bool {
	return o.Format != FormatSealedV3
}

type decryptStrategy interface {
	format() Format
	matches(blob string) bool
	open(blob string, cred Credentials) (string, error)
}

// SeedVault encrypts mnemonics under a key stretched from email + password.
// It holds no mutable state and is safe for concurrent use.
type SeedVault struct {
	iterations int
	rand       io.Reader
	strategies []decryptStrategy
}

type VaultOption func(*SeedVault)

// WithIterations sets the PBKDF2 iteration count written into new blobs.
func WithIterations(n int) VaultOption {
	return func(v *SeedVault) {
		if n > 0 && n <= maxKDFIterations {
			v.iterations = n
		}
	}
}

// WithRandom replaces the salt and nonce source.
func WithRandom(r io.Reader) VaultOption {
	return func(v *SeedVault) {
		if r != nil {
			v.rand = r
		}
	}
}

func NewSeedVault(opts ...VaultOption) *SeedVault {
	v := &SeedVault{
		iterations: DefaultKDFIterations,
		rand:       rand.Reader,
	}
	for _, opt := range opts {
		opt(v)
	}
	// newest first: older formats are only reached when nothing newer matches
	v.strategies = []decryptStrategy{sealedV3{}, saltedV2{}, legacyV1{}}
	return v
}

func (v *SeedVault) Iterations() int {
	return v.iterations
}

// Encrypt seals mnemonic as a SealedV3 blob with a fresh salt and nonce.
func (v *SeedVault) Encrypt(mnemonic, email, password string) (string, error) {
	cred := Credentials{Email: email, Password: password}.normalized()
	if mnemonic == "" || cred.Email == "" || cred.Password == "" {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeInvalidInput, "encrypt seed",
			errors.New("mnemonic, email and password are required"))
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(v.rand, salt); err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEntropy, "generate salt", err)
	}
	key := deriveKey(cred, keyedSalt(cred.Email, hex.EncodeToString(salt), v3Label), v.iterations)
	defer clearBytes(key)

	sealed, err := sealGCM(v.rand, key, []byte(mnemonic))
	if err != nil {
		return "", err
	}
	return encodeSaltMeta(salt, v.iterations) + saltDelimiter + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt returns the mnemonic sealed in blob. Every failure, whichever format
// was tried, is the same decryption error.
func (v *SeedVault) Decrypt(blob, email, password string) (string, error) {
	opened, err := v.Open(blob, email, password)
	if err != nil {
		return "", err
	}
	return opened.Mnemonic, nil
}

func (v *SeedVault) Open(blob, email, password string) (*OpenedSeed, error) {
	cred := Credentials{Email: email, Password: password}.normalized()
	blob = strings.TrimSpace(blob)
	if blob != "" && cred.Email != "" && cred.Password != "" {
		for _, s := range v.strategies {
			if !s.matches(blob) {
				continue
			}
			plain, err := s.open(blob, cred)
			if err != nil || plain == "" {
				continue
			}
			return &OpenedSeed{Mnemonic: plain, Format: s.format()}, nil
		}
	}
	return nil, wrapErrors.New(wrapErrors.CodeDecryption, "decrypt seed")
}

// Rewrap opens blob under from and seals the mnemonic again under to,
// always producing a SealedV3 blob.
func (v *SeedVault) Rewrap(blob string, from, to Credentials) (string, error) {
	opened, err := v.Open(blob, from.Email, from.Password)
	if err != nil {
		return "", err
	}
	return v.Encrypt(opened.Mnemonic, to.Email, to.Password)
}

// DetectFormat classifies blob by its discriminator only; it does not decrypt.
func DetectFormat(blob string) Format {
	blob = strings.TrimSpace(blob)
	for _, s := range []decryptStrategy{sealedV3{}, saltedV2{}, legacyV1{}} {
		if s.matches(blob) {
			return s.format()
		}
	}
	return FormatUnknown
}

// ---------- SealedV3 ----------

type sealedV3 struct{}

func (sealedV3) format() Format { return FormatSealedV3 }

func (sealedV3) matches(blob string) bool {
	return strings.HasPrefix(blob, v3Prefix)
}

func (sealedV3) open(blob string, cred Credentials) (string, error) {
	meta, payload, ok := strings.Cut(blob, saltDelimiter)
	if !ok {
		return "", errMalformedBlob
	}
	salt, iterations, err := decodeSaltMeta(meta)
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errMalformedBlob
	}
	key := deriveKey(cred, keyedSalt(cred.Email, hex.EncodeToString(salt), v3Label), iterations)
	defer clearBytes(key)

	plain, err := openGCM(key, sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// encodeSaltMeta packs the format tag, iterations and salt.
// Format: "v3$<iterations>$<hex-salt>"
func encodeSaltMeta(salt []byte, iterations int) string {
	return fmt.Sprintf("%s%d$%s", v3Prefix, iterations, hex.EncodeToString(salt))
}

func decodeSaltMeta(meta string) ([]byte, int, error) {
	parts := strings.Split(strings.TrimPrefix(meta, v3Prefix), "$")
	if len(parts) != 2 {
		return nil, 0, errMalformedBlob
	}
	iter, err := strconv.Atoi(parts[0])
	if err != nil || iter <= 0 || iter > maxKDFIterations {
		return nil, 0, errMalformedBlob
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) != saltLen {
		return nil, 0, errMalformedBlob
	}
	return salt, iter, nil
}

// ---------- SaltedV2 ----------

type saltedV2 struct{}

func (saltedV2) format() Format { return FormatSaltedV2 }

func (saltedV2) matches(blob string) bool {
	if strings.HasPrefix(blob, v3Prefix) || strings.Count(blob, saltDelimiter) != 1 {
		return false
	}
	saltHex, _, _ := strings.Cut(blob, saltDelimiter)
	_, err := hex.DecodeString(saltHex)
	return err == nil && saltHex != ""
}

func (saltedV2) open(blob string, cred Credentials) (string, error) {
	saltHex, payload, _ := strings.Cut(blob, saltDelimiter)
	ct, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errMalformedBlob
	}
	key := deriveKey(cred, keyedSalt(cred.Email, saltHex, v2Label), legacyIterations)
	defer clearBytes(key)
	return openCBCMnemonic(key, ct)
}

// ---------- LegacyV1 ----------

type legacyV1 struct{}

func (legacyV1) format() Format { return FormatLegacyV1 }

func (legacyV1) matches(blob string) bool {
	if blob == "" || strings.ContainsAny(blob, saltDelimiter+"$") {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(blob)
	return err == nil
}

func (legacyV1) open(blob string, cred Credentials) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", errMalformedBlob
	}
	key := deriveKey(cred, keyedSalt(cred.Email, "", v1Label), legacyIterations)
	defer clearBytes(key)
	return openCBCMnemonic(key, ct)
}

// ---------- primitives ----------

// keyedSalt binds the KDF salt to the user: SHA256(email + salt + label).
func keyedSalt(email, saltHex, label string) []byte {
	sum := sha256.Sum256([]byte(email + saltHex + label))
	return sum[:]
}

// deriveKey stretches password+email with PBKDF2-HMAC-SHA256 into an AES-256
// key. The caller must clear it after use.
func deriveKey(cred Credentials, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(cred.Password+cred.Email), salt, iterations, keyLen, sha256.New)
}

// sealGCM returns nonce|ciphertext. Only a failed nonce read is an entropy
// error.
func sealGCM(r io.Reader, key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEncryption, "seal seed", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEncryption, "seal seed", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEntropy, "generate nonce", err)
	}
	return gcm.Seal(nonce, nonce, plain, []byte(v3Label)), nil
}

func openGCM(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize()+gcm.Overhead() {
		return nil, errMalformedBlob
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, []byte(v3Label))
}

// openCBCMnemonic decrypts iv|ciphertext and accepts the plaintext only if it
// is a checksum-valid mnemonic; CBC has no integrity check of its own.
func openCBCMnemonic(key, data []byte) (string, error) {
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", errMalformedBlob
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	iv, ct := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain)
	if err != nil {
		clearBytes(plain)
		return "", err
	}
	if !utf8.Valid(unpadded) {
		clearBytes(plain)
		return "", errMalformedBlob
	}
	mnemonic := NormalizeMnemonic(string(unpadded))
	clearBytes(plain)
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", errMalformedBlob
	}
	return mnemonic, nil
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, errMalformedBlob
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, errMalformedBlob
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errMalformedBlob
		}
	}
	return b[:len(b)-n], nil
}
