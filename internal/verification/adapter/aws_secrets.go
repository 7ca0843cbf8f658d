package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/zonixt/eauction/internal/domain"
)

// smClient is the narrow consumer-defined interface for Secrets Manager operations.
type smClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ssmClient is the narrow consumer-defined interface for SSM Parameter Store operations.
type ssmClient interface {
	GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
}

var (
	_ smClient  = (*secretsmanager.Client)(nil)
	_ ssmClient = (*awsssm.Client)(nil)
)

// Secret reference prefixes. Any other value is used literally.
const (
	SecretsManagerPrefix = "sm:"
	ParameterStorePrefix = "ssm:"
)

// IsSecretRef reports whether v names a secret rather than holding one.
func IsSecretRef(v string) bool {
	return strings.HasPrefix(v, SecretsManagerPrefix) || strings.HasPrefix(v, ParameterStorePrefix)
}

// AWSSecretSource resolves gateway API keys held in Secrets Manager or SSM
// Parameter Store. Lookups are memoized for the life of the process.
type AWSSecretSource struct {
	sm  smClient
	ssm ssmClient

	mu    sync.Mutex
	cache map[string]domain.SecretString
}

// NewAWSSecretSource creates an AWSSecretSource. Either client may be nil if
// no reference of that kind is configured.
func NewAWSSecretSource(sm smClient, ssm ssmClient) *AWSSecretSource {
	return &AWSSecretSource{
		sm:    sm,
		ssm:   ssm,
		cache: make(map[string]domain.SecretString),
	}
}

// Resolve returns the secret named by ref ("sm:<secret-id>" or
// "ssm:<parameter-name>"). A value without a known prefix is returned as is.
func (s *AWSSecretSource) Resolve(ctx context.Context, ref domain.SecretString) (domain.SecretString, error) {
	raw := ref.Expose()
	if !IsSecretRef(raw) {
		return ref, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache[raw]; ok {
		return v, nil
	}

	var (
		v   string
		err error
	)
	switch {
	case strings.HasPrefix(raw, SecretsManagerPrefix):
		v, err = s.fromSecretsManager(ctx, strings.TrimPrefix(raw, SecretsManagerPrefix))
	default:
		v, err = s.fromParameterStore(ctx, strings.TrimPrefix(raw, ParameterStorePrefix))
	}
	if err != nil {
		return "", err
	}

	secret := domain.SecretString(strings.TrimSpace(v))
	if secret.IsEmpty() {
		return "", fmt.Errorf("secret %q is empty: %w", raw, domain.ErrConfigRequired)
	}
	s.cache[raw] = secret
	return secret, nil
}

func (s *AWSSecretSource) fromSecretsManager(ctx context.Context, id string) (string, error) {
	if s.sm == nil {
		return "", fmt.Errorf("secret %q: secrets manager client not configured", id)
	}
	out, err := s.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("fetching secret %q from Secrets Manager: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no secret string", id)
	}
	return *out.SecretString, nil
}

func (s *AWSSecretSource) fromParameterStore(ctx context.Context, name string) (string, error) {
	if s.ssm == nil {
		return "", fmt.Errorf("parameter %q: ssm client not configured", name)
	}
	out, err := s.ssm.GetParameter(ctx, &awsssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("fetching parameter %q from SSM: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", name)
	}
	return *out.Parameter.Value, nil
}
