package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/boogy/drinks-warden/pkg/utils"
)

// AwsLambdaUrl handles AWS Lambda function URL requests
type AwsLambdaUrl struct {
	router http.Handler
}

func NewAwsLambdaUrl(router http.Handler) *AwsLambdaUrl {
	return &AwsLambdaUrl{router: router}
}

// Handler is the Lambda function interface for Lambda URLs
func (h *AwsLambdaUrl) Handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	header := utils.HeaderFromMap(event.Headers, nil)
	for _, c := range event.Cookies {
		header.Add("Cookie", c)
	}

	resp, err := serveLambda(ctx, h.router, lambdaRequest{
		method:          event.RequestContext.HTTP.Method,
		path:            event.RawPath,
		query:           queryFromRaw(event.RawQueryString),
		header:          header,
		body:            event.Body,
		isBase64Encoded: event.IsBase64Encoded,
		sourceIP:        event.RequestContext.HTTP.SourceIP,
		requestID:       event.RequestContext.RequestID,
	})
	if err != nil {
		slog.Error("Invalid Lambda URL event", slog.String("error", err.Error()))
		return events.LambdaFunctionURLResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    ResponseHeaders,
			Body:       `{"success":false,"error":400,"message":"The request cannot be fulfilled due to bad syntax"}`,
		}, nil
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: resp.status,
		Headers:    resp.singleHeaders(),
		Body:       resp.body.String(),
	}, nil
}
