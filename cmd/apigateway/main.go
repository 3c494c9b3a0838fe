package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/boogy/drinks-warden/pkg/handler"
)

func main() {
	// Initialize all components using bootstrap
	bootstrap, err := handler.NewBootstrap(context.Background())
	if err != nil {
		panic(err)
	}

	// Create the API Gateway handler
	h := handler.NewAwsApiGatewayFromBootstrap(bootstrap)

	// The execution environment may be frozen after each invocation, so logs
	// are shipped before returning
	lambda.Start(func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		defer bootstrap.Cleanup(ctx)
		return h.Handler(ctx, event)
	})
}
