package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonixt/eauction/internal/domain"
)

// stubSMClient implements smClient for testing.
type stubSMClient struct {
	getSecretValueFn func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	calls            int
}

func (s *stubSMClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	s.calls++
	return s.getSecretValueFn(ctx, params, optFns...)
}

// stubSSMClient implements ssmClient for testing.
type stubSSMClient struct {
	getParameterFn func(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
}

func (s *stubSSMClient) GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error) {
	return s.getParameterFn(ctx, params, optFns...)
}

func TestIsSecretRef(t *testing.T) {
	assert.True(t, IsSecretRef("sm:twofactor/otp"))
	assert.True(t, IsSecretRef("ssm:/eauction/twofactor/otp"))
	assert.False(t, IsSecretRef("64896017-8585-11f0"))
	assert.False(t, IsSecretRef(""))
}

func TestAWSSecretSource_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("literal values pass through without AWS calls", func(t *testing.T) {
		src := NewAWSSecretSource(nil, nil)

		got, err := src.Resolve(ctx, "plain-key")
		require.NoError(t, err)

		assert.Equal(t, domain.SecretString("plain-key"), got)
	})

	t.Run("secrets manager reference is fetched once and trimmed", func(t *testing.T) {
		sm := &stubSMClient{
			getSecretValueFn: func(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				assert.Equal(t, "twofactor/otp", aws.ToString(params.SecretId))
				return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("  sm-key\n")}, nil
			},
		}
		src := NewAWSSecretSource(sm, nil)

		for range 2 {
			got, err := src.Resolve(ctx, "sm:twofactor/otp")
			require.NoError(t, err)
			assert.Equal(t, "sm-key", got.Expose())
		}
		assert.Equal(t, 1, sm.calls)
	})

	t.Run("ssm reference is fetched with decryption", func(t *testing.T) {
		ssm := &stubSSMClient{
			getParameterFn: func(_ context.Context, params *awsssm.GetParameterInput, _ ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error) {
				assert.Equal(t, "/eauction/otp", aws.ToString(params.Name))
				assert.True(t, aws.ToBool(params.WithDecryption))
				return &awsssm.GetParameterOutput{
					Parameter: &ssmtypes.Parameter{Value: aws.String("ssm-key")},
				}, nil
			},
		}
		src := NewAWSSecretSource(nil, ssm)

		got, err := src.Resolve(ctx, "ssm:/eauction/otp")
		require.NoError(t, err)

		assert.Equal(t, "ssm-key", got.Expose())
	})

	t.Run("missing client is an error", func(t *testing.T) {
		_, err := NewAWSSecretSource(nil, nil).Resolve(ctx, "sm:x")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "secrets manager client not configured")
	})

	t.Run("fetch error is wrapped", func(t *testing.T) {
		sm := &stubSMClient{
			getSecretValueFn: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				return nil, errors.New("AccessDenied")
			},
		}

		_, err := NewAWSSecretSource(sm, nil).Resolve(ctx, "sm:twofactor/otp")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "AccessDenied")
	})

	t.Run("empty secret is rejected", func(t *testing.T) {
		sm := &stubSMClient{
			getSecretValueFn: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
				return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("   ")}, nil
			},
		}

		_, err := NewAWSSecretSource(sm, nil).Resolve(ctx, "sm:blank")

		assert.ErrorIs(t, err, domain.ErrConfigRequired)
	})

	t.Run("parameter without value is an error", func(t *testing.T) {
		ssm := &stubSSMClient{
			getParameterFn: func(context.Context, *awsssm.GetParameterInput, ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error) {
				return &awsssm.GetParameterOutput{}, nil
			},
		}

		_, err := NewAWSSecretSource(nil, ssm).Resolve(ctx, "ssm:/missing")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no value")
	})
}
