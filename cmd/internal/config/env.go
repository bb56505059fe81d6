// Package config loads the environment for both binaries: a .env file
// locally, AWS SSM Parameter Store in production.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const (
	envVarsPrefix = "/agenthelper/prod/"
	defaultRegion = "us-east-2"
)

// LoadEnv exports the environment for the current GO_ENV. A missing .env
// file is fine outside production, variables may come from the shell.
func LoadEnv(ctx context.Context) error {
	if os.Getenv("GO_ENV") == "production" {
		return loadProdEnv(ctx)
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no .env file found, using process environment")
			return nil
		}
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func loadProdEnv(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(String("AWS_REGION", defaultRegion)))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	count := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("unable to load prod environment: %w", err)
		}

		for _, param := range out.Parameters {
			key := strings.TrimPrefix(aws.ToString(param.Name), envVarsPrefix)
			if err = os.Setenv(key, aws.ToString(param.Value)); err != nil {
				return fmt.Errorf("unable to set environment variable %s: %w", key, err)
			}
			count++
		}
	}
	log.Debugf("loaded %d prod environment variables", count)
	return nil
}

func String(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return def
}

func Int64(key string, def int64) (int64, error) {
	raw := String(key, "")
	if raw == "" {
		return def, nil
	}

	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return val, nil
}

func Int(key string, def int) (int, error) {
	val, err := Int64(key, int64(def))
	return int(val), err
}

func Bool(key string, def bool) (bool, error) {
	raw := String(key, "")
	if raw == "" {
		return def, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return val, nil
}

// Millis reads a duration given in milliseconds.
func Millis(key string, def time.Duration) (time.Duration, error) {
	val, err := Int64(key, def.Milliseconds())
	if err != nil {
		return 0, err
	}
	return time.Duration(val) * time.Millisecond, nil
}

// Duration reads a Go duration string such as "5m".
func Duration(key string, def time.Duration) (time.Duration, error) {
	raw := String(key, "")
	if raw == "" {
		return def, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, raw)
	}
	return val, nil
}
