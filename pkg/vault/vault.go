// Package vault 플랫폼 로그인 자격증명의 저장용 암호화/복호화.
// 포스팅 코디네이터가 암호화 세부사항을 모르도록 분리되어 있다.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// v1 암호문 형식: "v1:" + base64(nonce || AES-256-GCM ciphertext).
// 접두사 없는 값은 마이그레이션 이전의 평문으로 보고 그대로 통과시킨다.
const versionPrefix = "v1:"

const (
	keyIterations = 4096
	keyLength     = 32
)

// 키 유도용 고정 솔트. 키 자체는 환경변수로 주입되는 패스프레이즈.
var keySalt = []byte("replyon.credential.vault")

// Vault 자격증명 암복호화기
type Vault struct {
	aead cipher.AEAD
}

// New 패스프레이즈로부터 Vault 생성
func New(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("vault: encryption key is empty")
	}
	key := pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt 평문 암호화. 빈 문자열은 빈 문자열로 유지된다.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: nonce generation failed: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 암호문 복호화.
// 버전 접두사가 없는 값은 레거시 평문으로 간주하고 그대로 반환한다.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	if !strings.HasPrefix(ciphertext, versionPrefix) {
		return ciphertext, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, versionPrefix))
	if err != nil {
		return "", fmt.Errorf("vault: malformed ciphertext: %w", err)
	}
	if len(raw) < v.aead.NonceSize() {
		return "", fmt.Errorf("vault: ciphertext too short")
	}
	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt failed: %w", err)
	}
	return string(plain), nil
}
