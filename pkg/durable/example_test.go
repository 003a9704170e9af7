package durable_test

import (
	"context"
	"fmt"

	cfgpkg "github.com/rezlab/oplog/internal/config"
	"github.com/rezlab/oplog/internal/runtime"
	"github.com/rezlab/oplog/pkg/capability"
	"github.com/rezlab/oplog/pkg/durable"
	"github.com/rezlab/oplog/pkg/fault"
	"github.com/rezlab/oplog/pkg/log"
)

// echoProvider is a minimal vendor adapter. Real adapters close their live
// functions over an API client; the wrapper never sees vendor specifics.
type echoProvider struct {
	apiKey string
}

func (p *echoProvider) Info() capability.Info {
	return capability.Info{
		ID:           "echo",
		Vendor:       "example.test",
		Capabilities: []capability.Kind{capability.ChatCompletion},
	}
}

func (p *echoProvider) Close(context.Context) error { return nil }

// Send is a domain operation; failures are normalized through fault.Map.
func (p *echoProvider) Send(_ context.Context, prompt string) (string, *fault.Fault) {
	if p.apiKey == "" {
		return "", fault.Map(p.Info().ID, fault.Failure{
			Category: fault.CategoryHTTP,
			Status:   401,
			Message:  "missing api key",
		})
	}
	return "echo: " + prompt, nil
}

func Example() {
	rt, err := runtime.Open(runtime.Options{
		Backend: "memory",
		Config:  cfgpkg.Default(),
		Logger:  log.NewLogger(log.WithLevel(log.ErrorLevel)),
	})
	if err != nil {
		fmt.Println("open:", err)
		return
	}
	defer rt.Close()

	w, err := rt.Wrapper("wf-demo")
	if err != nil {
		fmt.Println("wrapper:", err)
		return
	}

	provider := &echoProvider{apiKey: "k"}
	ctx := context.Background()

	out := durable.Wrap(ctx, w, "chat.send", "hello", func(ctx context.Context) (string, *fault.Fault) {
		return provider.Send(ctx, "hello")
	})
	fmt.Println(out.Value)

	// A provider fault is an ordinary recorded outcome, not an error path.
	bad := &echoProvider{}
	out = durable.Wrap(ctx, w, "chat.send", "again", func(ctx context.Context) (string, *fault.Fault) {
		return bad.Send(ctx, "again")
	})
	fmt.Println(out.Fault.Kind)

	// Output:
	// echo: hello
	// authentication-failed
}
