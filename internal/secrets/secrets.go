// Package secrets resolves database credentials from AWS Secrets Manager
// when the deployment stores them there instead of the environment.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DBCredentials is the JSON shape of an RDS-style credentials secret.
type DBCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
}

// secretGetter is the slice of the Secrets Manager API we use.
type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// FetchDBCredentials loads and decodes the named secret using the default
// AWS credential chain.
func FetchDBCredentials(ctx context.Context, secretName string) (*DBCredentials, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return fetch(ctx, secretsmanager.NewFromConfig(awsCfg), secretName)
}

func fetch(ctx context.Context, client secretGetter, secretName string) (*DBCredentials, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: get %q: %w", secretName, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secrets: %q has no string payload", secretName)
	}

	var creds DBCredentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return nil, fmt.Errorf("secrets: decode %q: %w", secretName, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("secrets: %q is missing username or password", secretName)
	}
	return &creds, nil
}
