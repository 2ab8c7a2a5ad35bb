package runtimectx

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
)

// Detect inspects the invocation envelope — the ctx handed to the handler plus
// the platform environment — and classifies the hosting source. Predicates are
// tried in priority order and fall through to generic; detection never fails,
// it only degrades to a minimal context.
func Detect(ctx context.Context) *RuntimeContext {
	rc := &RuntimeContext{
		Source:      SourceGeneric,
		CreatedAt:   time.Now().UTC(),
		Region:      sniffRegion(),
		AccountName: os.Getenv("AWS_ACCOUNT_NAME"),
	}

	switch {
	case detectLambda(ctx, rc):
	case detectECS(rc):
	}

	if rc.InvocationID == "" {
		rc.InvocationID = uuid.New().String()
	}
	return rc
}

func detectLambda(ctx context.Context, rc *RuntimeContext) bool {
	lc, ok := lambdacontext.FromContext(ctx)
	fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	if !ok && fn == "" {
		return false
	}

	rc.Source = SourceLambda
	rc.FunctionName = fn
	rc.LogGroup = os.Getenv("AWS_LAMBDA_LOG_GROUP_NAME")
	rc.LogStream = os.Getenv("AWS_LAMBDA_LOG_STREAM_NAME")

	if ok {
		rc.RequestID = lc.AwsRequestID
		rc.InvocationID = lc.AwsRequestID
		if rc.AccountID == "" {
			rc.AccountID = accountFromARN(lc.InvokedFunctionArn)
		}
		if rc.FunctionName == "" {
			rc.FunctionName = functionFromARN(lc.InvokedFunctionArn)
		}
	}
	return true
}

func detectECS(rc *RuntimeContext) bool {
	if os.Getenv("ECS_CONTAINER_METADATA_URI_V4") == "" &&
		os.Getenv("ECS_CONTAINER_METADATA_URI") == "" {
		return false
	}

	rc.Source = SourceECS
	rc.ClusterName = os.Getenv("ECS_CLUSTER")
	rc.TaskARN = os.Getenv("ECS_TASK_ARN")
	if rc.AccountID == "" {
		rc.AccountID = accountFromARN(rc.TaskARN)
	}
	if rc.InvocationID == "" && rc.TaskARN != "" {
		rc.InvocationID = shortARN(rc.TaskARN)
	}
	return true
}

func sniffRegion() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return os.Getenv("AWS_DEFAULT_REGION")
}

// accountFromARN pulls the account ID out of arn:aws:service:region:account:…
func accountFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) > 4 {
		return parts[4]
	}
	return ""
}

func functionFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) > 6 {
		return parts[6]
	}
	return ""
}
