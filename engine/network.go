package engine

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vinhphatfsg/rulemorph/pipe"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/trace"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Request is what the engine hands a Transport: everything a network
// rule resolved about the call, with headers/body already materialized.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte // nil means no body
}

// Response is what a Transport reports back. Timeout is a flag, not an
// error, so the engine can route it through catch's `timeout` key
// instead of failing the call outright.
type Response struct {
	Status  int
	Body    []byte
	Timeout bool
}

// Transport executes a single HTTP call. register_transport is how an
// embedding application supplies this; the engine never opens a socket
// itself, preserving purity for tests (a mock Transport) and for ports
// to other runtimes.
type Transport func(ctx context.Context, req Request) (Response, error)

// networkError carries the HTTP status (when known) alongside the
// taxonomy error, so catch dispatch (caller.go) can apply its
// exact -> 4xx/5xx -> timeout -> default precedence without re-parsing
// the error string.
type networkError struct {
	status  int
	timeout bool
	cause   error
}

func (e *networkError) Error() string { return e.cause.Error() }
func (e *networkError) Unwrap() error { return e.cause }

// RunNetwork executes a network rule's request against transport,
// retrying per request.retry, and resolves `select` against the decoded
// JSON body. input/ctx seed @input/@context the same way any other rule
// invocation does, since a network rule is reached via a branch/catch
// reference exactly like a normal rule.
func RunNetwork(rule *ruleast.NetworkRule, fromPath string, input, ctx any, transport Transport, caller Caller, rec *trace.Recorder, parent *trace.Node) (any, error) {
	n, done := rec.Step("network", fromPath)
	defer done()
	defer parent.Attach(n)

	if transport == nil {
		err := xerr.ErrExternal("no transport registered for network rule")
		n.SetError(err)
		return nil, err
	}

	env := &refpath.Env{Input: input, Context: ctx}
	req, err := buildRequest(rule, fromPath, env, caller, rec, n)
	if err != nil {
		n.SetError(err)
		return nil, err
	}
	n.WithInput(req)

	timeout := 30 * time.Second
	if rule.Request.Timeout != "" {
		if d, err := parseNetworkDuration(rule.Request.Timeout); err == nil {
			timeout = d
		}
	}

	resp, err := callWithRetry(req, rule.Request.Retry, transport, timeout)
	if err != nil {
		err = &networkError{status: resp.Status, cause: err}
		n.SetError(err)
		return nil, err
	}
	if resp.Timeout {
		err := &networkError{timeout: true, cause: xerr.ErrTimeout("network request timed out")}
		n.SetError(err)
		return nil, err
	}

	var bodyJSON any
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &bodyJSON); err != nil {
			err := &networkError{status: resp.Status, cause: xerr.ErrExternal("response body is not valid JSON: " + err.Error())}
			n.SetError(err)
			return nil, err
		}
	}
	if resp.Status >= 400 {
		err := &networkError{status: resp.Status, cause: xerr.ErrExternalf("request failed with status %d", resp.Status)}
		n.SetError(err)
		return nil, err
	}

	result, err := selectBody(rule.Select, bodyJSON)
	if err != nil {
		n.SetError(err)
		return nil, err
	}
	n.WithOutput(result)
	return result, nil
}

func selectBody(selectPath string, bodyJSON any) (any, error) {
	if selectPath == "" {
		return bodyJSON, nil
	}
	p, err := refpath.Parse(selectPath)
	if err != nil {
		return nil, err
	}
	v := refpath.WalkSegments(bodyJSON, p)
	if value.IsMissing(v) {
		return nil, xerr.ErrExternal("select path " + selectPath + " not found in response body")
	}
	return v, nil
}

func buildRequest(rule *ruleast.NetworkRule, fromPath string, env *refpath.Env, caller Caller, rec *trace.Recorder, parent *trace.Node) (Request, error) {
	req := Request{Method: rule.Request.Method, Headers: rule.Request.Headers}

	urlVal, err := pipe.Eval(&rule.Request.URL, env)
	if err != nil {
		return req, err
	}
	url, err := value.CastString(urlVal)
	if err != nil {
		return req, xerr.ErrTypeMismatch("network.request.url", value.TypeName(urlVal), "string")
	}
	req.URL = url

	body, hasBody, err := resolveNetworkBody(rule, fromPath, env, caller, rec, parent)
	if err != nil {
		return req, err
	}
	if hasBody {
		b, err := json.Marshal(body)
		if err != nil {
			return req, xerr.ErrExternal("cannot encode request body: " + err.Error())
		}
		req.Body = b
	}
	return req, nil
}

// resolveNetworkBody implements the SUPPLEMENTED-feature decision (5): a
// body that resolves to value.Missing sends no body at all; one that
// resolves to nil sends a literal JSON null.
func resolveNetworkBody(rule *ruleast.NetworkRule, fromPath string, env *refpath.Env, caller Caller, rec *trace.Recorder, parent *trace.Node) (any, bool, error) {
	switch rule.Request.BodyKind {
	case ruleast.BodyNone:
		return nil, false, nil
	case ruleast.BodyLiteral:
		if value.IsMissing(rule.Request.Body) {
			return nil, false, nil
		}
		return rule.Request.Body, true, nil
	case ruleast.BodyMap:
		return rule.Request.BodyMap, true, nil
	case ruleast.BodyRule:
		out, err := caller.CallRule(rule.Request.BodyRuleRef, fromPath, env.Input, env.Context, rec, parent)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	default:
		return nil, false, nil
	}
}

func callWithRetry(req Request, retry *ruleast.RetrySpec, transport Transport, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if retry == nil || retry.Max <= 0 {
		return transport(ctx, req)
	}

	initial := 100 * time.Millisecond
	if retry.InitialDelay != "" {
		if d, err := parseNetworkDuration(retry.InitialDelay); err == nil {
			initial = d
		}
	}

	var bo backoff.BackOff
	switch retry.Backoff {
	case "linear":
		bo = &linearBackOff{initial: initial}
	case "exponential", "":
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = initial
		bo = eb
	default: // "fixed"
		bo = backoff.NewConstantBackOff(initial)
	}

	return backoff.Retry(ctx, func() (Response, error) {
		resp, err := transport(ctx, req)
		if err != nil {
			return resp, err
		}
		if resp.Status >= 500 {
			return resp, xerr.ErrExternalf("server error status %d", resp.Status)
		}
		return resp, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(retry.Max)+1))
}

// linearBackOff grows its delay by a fixed increment per attempt,
// implementing the `linear` strategy backoff/v5 doesn't ship directly.
type linearBackOff struct {
	initial time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.initial * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

func parseNetworkDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "ms") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "ms"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * time.Millisecond, nil
	}
	if strings.HasSuffix(s, "s") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "s"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * time.Second, nil
	}
	return 0, xerr.ErrValidation("", "", "duration must end in 'ms' or 's'")
}
