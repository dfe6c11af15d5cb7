package awsutil

import (
	"context"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Secret naming scheme. Per-integration provider tokens live under the
// catalog/ prefix; service-level secrets under catalog-sync/.
const (
	integrationSecretPrefix = "catalog"
	serviceSecretPrefix     = "catalog-sync"
)

// AccessTokenSecretName is the Secrets Manager name holding the provider
// access token for one integration.
func AccessTokenSecretName(integrationID string) string {
	return fmt.Sprintf("%s/%s/ACCESS_TOKEN", integrationSecretPrefix, integrationID)
}

// ServiceSecretName names a service-level secret such as the JWT signing key.
func ServiceSecretName(key string) string {
	return fmt.Sprintf("%s/%s", serviceSecretPrefix, key)
}

// SecretsClient reads secrets for the sync service. Values are cached for the
// process lifetime: integration tokens are rotated by re-provisioning, not
// in-place, so a stale read is at worst one restart old.
type SecretsClient struct {
	client *secretsmanager.Client
	cache  map[string]string
	mu     sync.RWMutex
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]string),
	}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()
	return *out.SecretString, nil
}
