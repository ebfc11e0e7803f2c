package aws_handler_test

import (
	"context"
	"errors"
	"testing"

	aws_handler "ledger/src/utils/aws"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	secretsmanageriface.SecretsManagerAPI
	secrets map[string]*string
}

func (f *fakeSecretsManager) GetSecretValueWithContext(_ aws.Context, input *secretsmanager.GetSecretValueInput, _ ...request.Option) (*secretsmanager.GetSecretValueOutput, error) {
	value, ok := f.secrets[aws.StringValue(input.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: value}, nil
}

func TestSecretManager(t *testing.T) {
	manager := aws_handler.NewSecretManager(&fakeSecretsManager{secrets: map[string]*string{
		"ledger/db":     aws.String("s3cret"),
		"ledger/binary": nil,
	}})
	ctx := context.Background()

	t.Run("should return the secret string", func(t *testing.T) {
		value, err := manager.GetSecretValue(ctx, "ledger/db")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", value)
	})

	t.Run("should fail on binary or missing secrets", func(t *testing.T) {
		_, err := manager.GetSecretValue(ctx, "ledger/binary")
		require.Error(t, err)
		_, err = manager.GetSecretValue(ctx, "ledger/other")
		require.Error(t, err)
	})
}
