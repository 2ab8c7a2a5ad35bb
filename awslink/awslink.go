// Package awslink builds AWS console deep links for notification payloads.
package awslink

import (
	"fmt"
	"net/url"
)

const console = "https://console.aws.amazon.com"

// LambdaConsole returns a deep link to the function's console page.
func LambdaConsole(region, functionName string) string {
	if region == "" || functionName == "" {
		return ""
	}
	return fmt.Sprintf("%s/lambda/home?region=%s#/functions/%s",
		console, url.QueryEscape(region), url.QueryEscape(functionName))
}

// CloudWatchLogStream returns a deep link to a log group, narrowed to one
// stream when known. Group and stream are fully escaped because they routinely
// contain "/" and "[]".
func CloudWatchLogStream(region, logGroup, logStream string) string {
	if region == "" || logGroup == "" {
		return ""
	}
	group := url.QueryEscape(logGroup)
	base := fmt.Sprintf("%s/cloudwatch/home?region=%s#logEventViewer:group=%s",
		console, url.QueryEscape(region), group)
	if logStream == "" {
		return base
	}
	return base + ";stream=" + url.QueryEscape(logStream)
}
