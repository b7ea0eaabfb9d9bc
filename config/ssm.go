package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterSource is the part of the SSM client used to read parameters
type ParameterSource interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// OverlaySSM reads every parameter under prefix and writes it into config, keyed by the
// upper-cased last path element. /blog/prod/db_password becomes DB_PASSWORD.
// Values already present in config win so local overrides keep working.
func OverlaySSM(ctx context.Context, src ParameterSource, prefix string, config map[string]string) (int, error) {
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	}
	applied := 0
	for {
		out, err := src.GetParametersByPath(ctx, input)
		if err != nil {
			return applied, fmt.Errorf("read ssm parameters under %s: %w", prefix, err)
		}
		for _, p := range out.Parameters {
			key := strings.ToUpper(path.Base(aws.ToString(p.Name)))
			if existing, ok := config[key]; ok && existing != "" {
				continue
			}
			config[key] = aws.ToString(p.Value)
			applied++
		}
		if out.NextToken == nil {
			return applied, nil
		}
		input.NextToken = out.NextToken
	}
}
