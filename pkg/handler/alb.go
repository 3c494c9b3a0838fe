package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/boogy/drinks-warden/pkg/utils"
)

// AwsApplicationLoadBalancer handles AWS Application Load Balancer requests
type AwsApplicationLoadBalancer struct {
	router http.Handler
}

func NewAwsApplicationLoadBalancer(router http.Handler) *AwsApplicationLoadBalancer {
	return &AwsApplicationLoadBalancer{router: router}
}

// Handler is the Lambda function interface for Application Load Balancer
func (h *AwsApplicationLoadBalancer) Handler(ctx context.Context, event events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	header := utils.HeaderFromMap(event.Headers, event.MultiValueHeaders)

	resp, err := serveLambda(ctx, h.router, lambdaRequest{
		method:          event.HTTPMethod,
		path:            event.Path,
		query:           queryFromMaps(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		header:          header,
		body:            event.Body,
		isBase64Encoded: event.IsBase64Encoded,
		sourceIP:        header.Get("X-Forwarded-For"),
		requestID:       header.Get("X-Amzn-Trace-Id"),
	})
	if err != nil {
		slog.Error("Invalid ALB event", slog.String("error", err.Error()))
		resp = &lambdaResponse{header: http.Header{"Content-Type": {"application/json"}}, status: http.StatusBadRequest}
		resp.body.WriteString(`{"success":false,"error":400,"message":"The request cannot be fulfilled due to bad syntax"}`)
	}

	out := events.ALBTargetGroupResponse{
		StatusCode:        resp.status,
		StatusDescription: fmt.Sprintf("%d %s", resp.status, http.StatusText(resp.status)),
		Body:              resp.body.String(),
	}
	// ALB rejects responses carrying both header maps
	if len(event.MultiValueHeaders) > 0 {
		out.MultiValueHeaders = resp.header
	} else {
		out.Headers = resp.singleHeaders()
	}
	return out, nil
}
