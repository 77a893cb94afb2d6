// Package container implements the on-wire .vult container codec: a
// base64(protobuf(VaultContainer{version, vault, isEncrypted})) envelope,
// where the inner vault is itself base64(protobuf(Vault)), optionally
// AES-256-GCM encrypted under a password-derived key. See spec §4.2/§6.1.
package container

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	v1 "github.com/vultisig/commondata/go/vultisig/vault/v1"
	"golang.org/x/crypto/pbkdf2"
	"google.golang.org/protobuf/proto"

	"crypto/sha256"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// containerVersion is the VaultContainer.version written by this SDK.
const containerVersion = 1

// KDF parameters, pinned at v1 per the Open Question in spec §9: all
// cooperating SDKs must agree on these for cross-SDK interop. Do not
// change without bumping containerVersion and adding a migration path.
const (
	kdfSaltSize   = 16
	kdfIterations = 100_000
	kdfKeySize    = 32
	gcmNonceSize  = 12
)

// Encode serialises v to protobuf and, if password is non-empty,
// AES-256-GCM encrypts it under a PBKDF2-SHA256 key before base64-wrapping
// it in a VaultContainer. Encode clears all derived key material before
// returning, on every exit path.
func Encode(v *vaultcore.Vault, password string) (string, error) {
	inner, err := proto.Marshal(toProto(v))
	if err != nil {
		return "", errs.Wrap(errs.Internal, "marshal inner vault", err)
	}

	vc := &v1.VaultContainer{
		Version:     containerVersion,
		IsEncrypted: password != "",
	}

	if !vc.IsEncrypted {
		vc.Vault = base64.StdEncoding.EncodeToString(inner)
	} else {
		blob, err := encryptAESGCM(inner, password)
		if err != nil {
			return "", err
		}
		vc.Vault = base64.StdEncoding.EncodeToString(blob)
	}

	outer, err := proto.Marshal(vc)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "marshal vault container", err)
	}
	return base64.StdEncoding.EncodeToString(outer), nil
}

// Decode is the inverse of Encode. password is required iff the container
// is encrypted; a wrong password fails with errs.InvalidPassword, missing
// password with errs.PasswordRequired, and any structurally malformed
// input with errs.CorruptedData.
func Decode(containerB64 string, password string) (*vaultcore.Vault, error) {
	vc, err := decodeOuter(containerB64)
	if err != nil {
		return nil, err
	}

	var inner []byte
	if vc.IsEncrypted {
		if password == "" {
			return nil, errs.New(errs.PasswordRequired, "vault is encrypted, password required")
		}
		raw, err := base64.StdEncoding.DecodeString(vc.Vault)
		if err != nil {
			return nil, errs.Wrap(errs.CorruptedData, "decode inner vault blob", err)
		}
		inner, err = decryptAESGCM(raw, password)
		if err != nil {
			return nil, err
		}
	} else {
		inner, err = base64.StdEncoding.DecodeString(vc.Vault)
		if err != nil {
			return nil, errs.Wrap(errs.CorruptedData, "decode inner vault blob", err)
		}
	}
	defer zero(inner)

	pv := &v1.Vault{}
	if err := proto.Unmarshal(inner, pv); err != nil {
		return nil, errs.Wrap(errs.CorruptedData, "unmarshal inner vault", err)
	}

	return fromProto(pv), nil
}

// IsEncrypted parses only the outer VaultContainer and reports its
// isEncrypted flag, without touching the (possibly encrypted) payload.
func IsEncrypted(containerB64 string) (bool, error) {
	vc, err := decodeOuter(containerB64)
	if err != nil {
		return false, err
	}
	return vc.IsEncrypted, nil
}

func decodeOuter(containerB64 string) (*v1.VaultContainer, error) {
	raw, err := base64.StdEncoding.DecodeString(containerB64)
	if err != nil {
		return nil, errs.Wrap(errs.CorruptedData, "decode outer container base64", err)
	}
	vc := &v1.VaultContainer{}
	if err := proto.Unmarshal(raw, vc); err != nil {
		return nil, errs.Wrap(errs.CorruptedData, "unmarshal vault container", err)
	}
	if vc.Vault == "" {
		return nil, errs.New(errs.CorruptedData, "vault container has empty payload")
	}
	return vc, nil
}

// encryptAESGCM derives a key from password via PBKDF2-SHA256 and returns
// salt || nonce || ciphertext+tag.
func encryptAESGCM(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, kdfSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errs.Wrap(errs.Internal, "generate salt", err)
	}

	key := pbkdf2.Key([]byte(password), salt, kdfIterations, kdfKeySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "create aes cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "create gcm", err)
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errs.Wrap(errs.Internal, "generate nonce", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// decryptAESGCM is the inverse of encryptAESGCM.
func decryptAESGCM(blob []byte, password string) ([]byte, error) {
	if len(blob) < kdfSaltSize+gcmNonceSize {
		return nil, errs.New(errs.CorruptedData, "encrypted vault blob too short")
	}
	salt := blob[:kdfSaltSize]
	nonce := blob[kdfSaltSize : kdfSaltSize+gcmNonceSize]
	ciphertext := blob[kdfSaltSize+gcmNonceSize:]

	key := pbkdf2.Key([]byte(password), salt, kdfIterations, kdfKeySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "create aes cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "create gcm", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidPassword, "decrypt vault", err)
	}
	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
