package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"catalog-sync-service/awsutil"
	"catalog-sync-service/models"
)

var (
	ErrNoToken       = errors.New("integration has no access token configured")
	ErrNoEnvironment = errors.New("integration has no environment configured")
)

// Resolver is the decrypt-on-read credential store: given an integration it
// yields the provider access token and the environment tag that selects the
// provider base URL.
type Resolver interface {
	Resolve(ctx context.Context, integration *models.Integration) (token, environment string, err error)
}

// EnvCipherResolver decrypts the AES-GCM ciphertext stored on the integration
// document using a service-wide key.
type EnvCipherResolver struct {
	key       []byte
	strictEnv bool
}

// NewEnvCipherResolver derives a 256-bit key from the configured secret. When
// strictEnv is set, an integration without an environment tag is a hard
// configuration error instead of defaulting to production.
func NewEnvCipherResolver(secret string, strictEnv bool) *EnvCipherResolver {
	sum := sha256.Sum256([]byte(secret))
	return &EnvCipherResolver{key: sum[:], strictEnv: strictEnv}
}

func (r *EnvCipherResolver) Resolve(_ context.Context, integration *models.Integration) (string, string, error) {
	env, err := environmentFor(integration, r.strictEnv)
	if err != nil {
		return "", "", err
	}
	if integration.AccessTokenEnc == "" {
		return "", "", ErrNoToken
	}
	token, err := r.decrypt(integration.AccessTokenEnc)
	if err != nil {
		return "", "", fmt.Errorf("decrypt access token for integration %s: %w", integration.ID, err)
	}
	return token, env, nil
}

func (r *EnvCipherResolver) decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("ciphertext shorter than nonce")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}

// Encrypt is the write-side counterpart used when integrations are
// provisioned.
func (r *EnvCipherResolver) Encrypt(plain string, nonce []byte) (string, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("nonce must be %d bytes", gcm.NonceSize())
	}
	sealed := gcm.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(append(append([]byte{}, nonce...), sealed...)), nil
}

// SecretsManagerResolver reads access tokens from AWS Secrets Manager using
// the awsutil naming scheme.
type SecretsManagerResolver struct {
	secrets   *awsutil.SecretsClient
	strictEnv bool
}

func NewSecretsManagerResolver(secrets *awsutil.SecretsClient, strictEnv bool) *SecretsManagerResolver {
	return &SecretsManagerResolver{secrets: secrets, strictEnv: strictEnv}
}

func (r *SecretsManagerResolver) Resolve(ctx context.Context, integration *models.Integration) (string, string, error) {
	env, err := environmentFor(integration, r.strictEnv)
	if err != nil {
		return "", "", err
	}
	token, err := r.secrets.GetSecret(ctx, awsutil.AccessTokenSecretName(integration.ID))
	if err != nil {
		return "", "", fmt.Errorf("resolve access token for integration %s: %w", integration.ID, err)
	}
	if token == "" {
		return "", "", ErrNoToken
	}
	return token, env, nil
}

func environmentFor(integration *models.Integration, strict bool) (string, error) {
	if integration.Environment != "" {
		return integration.Environment, nil
	}
	if strict {
		return "", ErrNoEnvironment
	}
	return models.EnvironmentProduction, nil
}
