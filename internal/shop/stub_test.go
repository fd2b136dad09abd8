package shop

import (
	"context"
	"encoding/json"
	"sync"
)

type stubCall struct {
	method string
	args   map[string]any
	ctx    context.Context
}

// stubCaller records calls and answers with canned results per method.
type stubCaller struct {
	mu      sync.Mutex
	calls   []stubCall
	results map[string]any
	errs    map[string]error
	hook    func(method string)
}

func newStubCaller() *stubCaller {
	return &stubCaller{results: map[string]any{}, errs: map[string]error{}}
}

func (s *stubCaller) Call(ctx context.Context, method string, args any, out any) error {
	var decoded map[string]any
	if args != nil {
		raw, _ := json.Marshal(args)
		_ = json.Unmarshal(raw, &decoded)
	}

	s.mu.Lock()
	s.calls = append(s.calls, stubCall{method: method, args: decoded, ctx: ctx})
	result, hasResult := s.results[method]
	err := s.errs[method]
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(method)
	}
	if err != nil {
		return err
	}
	if out == nil || !hasResult || result == nil {
		return nil
	}
	raw, mErr := json.Marshal(result)
	if mErr != nil {
		return mErr
	}
	return json.Unmarshal(raw, out)
}

func (s *stubCaller) callsTo(method string) []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stubCall
	for _, c := range s.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}
