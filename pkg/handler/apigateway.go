package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/boogy/drinks-warden/pkg/utils"
)

// AwsApiGateway handles AWS API Gateway proxy integration requests
type AwsApiGateway struct {
	router http.Handler
}

// NewAwsApiGateway creates a new API Gateway handler serving router
func NewAwsApiGateway(router http.Handler) *AwsApiGateway {
	return &AwsApiGateway{router: router}
}

// Handler is the Lambda function interface for API Gateway
func (h *AwsApiGateway) Handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := serveLambda(ctx, h.router, lambdaRequest{
		method:          event.HTTPMethod,
		path:            event.Path,
		query:           queryFromMaps(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		header:          utils.HeaderFromMap(event.Headers, event.MultiValueHeaders),
		body:            event.Body,
		isBase64Encoded: event.IsBase64Encoded,
		sourceIP:        event.RequestContext.Identity.SourceIP,
		requestID:       event.RequestContext.RequestID,
	})
	if err != nil {
		slog.Error("Invalid API Gateway event", slog.String("error", err.Error()))
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    ResponseHeaders,
			Body:       `{"success":false,"error":400,"message":"The request cannot be fulfilled due to bad syntax"}`,
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode:        resp.status,
		Headers:           resp.singleHeaders(),
		MultiValueHeaders: resp.header,
		Body:              resp.body.String(),
	}, nil
}
