package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/jackc/puddle/v2"
)

// pooledClient is the puddle-managed resource: a *http.Client configured
// with one Transport's connection limits, reused across calls instead of
// constructed per call.
type pooledClient struct {
	client *http.Client
}

// NewPooledTransport builds a Transport backed by a puddle.Pool of
// *http.Client, so concurrent network rule calls share a bounded set of
// keep-alive-capable clients instead of paying a dial cost per call.
// maxSize is a fixed ceiling per pool, warmed with one resource up front.
func NewPooledTransport(maxSize int32) (Transport, error) {
	if maxSize <= 0 {
		maxSize = 10
	}
	pool, err := puddle.NewPool(&puddle.Config[*pooledClient]{
		Constructor: func(ctx context.Context) (*pooledClient, error) {
			return &pooledClient{client: &http.Client{}}, nil
		},
		Destructor: func(res *pooledClient) {
			res.client.CloseIdleConnections()
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}
	if err := pool.CreateResource(context.Background()); err != nil {
		return nil, err
	}

	return func(ctx context.Context, req Request) (Response, error) {
		res, err := pool.Acquire(ctx)
		if err != nil {
			return Response{}, err
		}
		defer res.Release()

		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
		if err != nil {
			return Response{}, err
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}

		httpResp, err := res.Value().client.Do(httpReq)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return Response{Timeout: true}, nil
			}
			return Response{}, err
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: httpResp.StatusCode, Body: respBody}, nil
	}, nil
}
