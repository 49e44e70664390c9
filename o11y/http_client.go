package o11y

import (
	"net/http"
	"strconv"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
)

// HTTPClient is satisfied by *http.Client and by the clients the AWS SDK builds.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type gatewayClient struct {
	HTTPClient
}

// WrapClient traces every request sent to the delivery gateway. Requests issued by an AWS
// service client are named after the service operation (SNS.Publish, SES.SendEmail) and
// counted by the status code the gateway answered with.
func WrapClient(c HTTPClient) HTTPClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &gatewayClient{HTTPClient: c}
}

func (c *gatewayClient) Do(req *http.Request) (res *http.Response, err error) {
	service := awsmiddleware.GetServiceID(req.Context())
	operation := awsmiddleware.GetOperationName(req.Context())

	name := req.URL.Host
	if service != "" {
		name = service + "." + operation
	}

	ctx, span := Trace(req.Context(), name, WithSpanKind(SpanKindClient))
	defer func() {
		status := "error"
		if err != nil {
			span.RecordError(err)
		} else {
			status = strconv.Itoa(res.StatusCode)
			span.SetMetadata(map[string]any{
				"http.status_code":             res.StatusCode,
				"http.response_content_length": res.ContentLength,
			})
			span.SetStatus(res.StatusCode)
		}
		span.End()
		if service != "" {
			gatewayResponses.WithLabelValues(service, operation, status).Inc()
		}
	}()

	if service != "" {
		span.SetAnnotation("aws.service", service)
		span.SetAnnotation("aws.operation", operation)
	}
	span.SetMetadata(map[string]any{
		"http.method":                 req.Method,
		"http.host":                   req.URL.Host,
		"http.path":                   req.URL.Path,
		"http.request_content_length": req.ContentLength,
	})

	return c.HTTPClient.Do(req.WithContext(ctx))
}
