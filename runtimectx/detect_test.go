package runtimectx

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AWS_LAMBDA_FUNCTION_NAME", "AWS_LAMBDA_LOG_GROUP_NAME", "AWS_LAMBDA_LOG_STREAM_NAME",
		"ECS_CONTAINER_METADATA_URI_V4", "ECS_CONTAINER_METADATA_URI", "ECS_CLUSTER", "ECS_TASK_ARN",
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_ACCOUNT_NAME",
	} {
		t.Setenv(k, "")
	}
}

func TestDetectGeneric(t *testing.T) {
	clearPlatformEnv(t)

	rc := Detect(context.Background())
	require.NotNil(t, rc)
	assert.Equal(t, SourceGeneric, rc.Source)
	assert.NotEmpty(t, rc.InvocationID)
	assert.False(t, rc.CreatedAt.IsZero())
}

func TestDetectLambda(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "orders-sync")
	t.Setenv("AWS_LAMBDA_LOG_GROUP_NAME", "/aws/lambda/orders-sync")
	t.Setenv("AWS_LAMBDA_LOG_STREAM_NAME", "2026/08/30/[$LATEST]abc")
	t.Setenv("AWS_REGION", "eu-west-1")

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
		AwsRequestID:       "req-42",
		InvokedFunctionArn: "arn:aws:lambda:eu-west-1:123456789012:function:orders-sync",
	})

	rc := Detect(ctx)
	assert.Equal(t, SourceLambda, rc.Source)
	assert.Equal(t, "orders-sync", rc.FunctionName)
	assert.Equal(t, "req-42", rc.RequestID)
	assert.Equal(t, "req-42", rc.InvocationID)
	assert.Equal(t, "123456789012", rc.AccountID)
	assert.Equal(t, "eu-west-1", rc.Region)
	assert.Equal(t, "/aws/lambda/orders-sync", rc.LogGroup)
}

func TestDetectLambdaEnvOnly(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "orders-sync")

	rc := Detect(context.Background())
	assert.Equal(t, SourceLambda, rc.Source)
	assert.Equal(t, "orders-sync", rc.FunctionName)
	// No lambda ctx, so detection falls back to a generated invocation ID.
	assert.NotEmpty(t, rc.InvocationID)
}

func TestDetectECS(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("ECS_CONTAINER_METADATA_URI_V4", "http://169.254.170.2/v4/abc")
	t.Setenv("ECS_CLUSTER", "prod")
	t.Setenv("ECS_TASK_ARN", "arn:aws:ecs:eu-west-1:123456789012:task/prod/deadbeef")

	rc := Detect(context.Background())
	assert.Equal(t, SourceECS, rc.Source)
	assert.Equal(t, "prod", rc.ClusterName)
	assert.Equal(t, "123456789012", rc.AccountID)
	assert.Equal(t, "deadbeef", rc.InvocationID)
}

func TestDetectLambdaBeatsECS(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "orders-sync")
	t.Setenv("ECS_CONTAINER_METADATA_URI_V4", "http://169.254.170.2/v4/abc")

	rc := Detect(context.Background())
	assert.Equal(t, SourceLambda, rc.Source)
}
