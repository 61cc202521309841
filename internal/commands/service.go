package commands

import (
	"context"
)

// EvalAck is returned by eval_in_webview once the script is delivered
const EvalAck = "Script executed successfully (result ignored)"

// Injector delivers a script without waiting for it; *surface.Registry implements it
type Injector interface {
	Inject(ctx context.Context, label, script string) error
}

// Evaluator runs a correlated evaluation; *bridge.Evaluator implements it
type Evaluator interface {
	Evaluate(ctx context.Context, label, script string) (string, error)
}

// Resolver resolves page metadata; *metadata.Pipeline implements it
type Resolver interface {
	Resolve(ctx context.Context, label string, pageURL *string) (string, error)
	ResolveSimple(ctx context.Context, pageURL string) string
}

// Service implements the bridge commands
type Service struct {
	injector  Injector
	evaluator Evaluator
	resolver  Resolver
}

// NewService creates the command service
func NewService(injector Injector, evaluator Evaluator, resolver Resolver) *Service {
	return &Service{injector: injector, evaluator: evaluator, resolver: resolver}
}

// Register adds the four bridge commands to d
func (s *Service) Register(d *Dispatcher) error {
	labelParam := Parameter{Name: "label", Type: "string", Description: "Surface label", Required: true}
	scriptParam := Parameter{Name: "script", Type: "string", Description: "JavaScript expression", Required: true}

	commands := []struct {
		def     Definition
		handler Handler
	}{
		{
			def: Definition{
				Name:        EvalInWebview,
				Description: "Inject a script into a surface without waiting for its result",
				Parameters:  []Parameter{labelParam, scriptParam},
				Returns:     "string",
			},
			handler: s.evalInWebview,
		},
		{
			def: Definition{
				Name:        GetPageProperties,
				Description: "Evaluate an expression in a surface and return its JSON value",
				Parameters:  []Parameter{labelParam, scriptParam},
				Returns:     "json",
			},
			handler: s.getPageProperties,
		},
		{
			def: Definition{
				Name:        GetPageMetadata,
				Description: "Read page metadata in-page, fetching url when that fails",
				Parameters: []Parameter{
					labelParam,
					{Name: "url", Type: "string", Description: "Page URL for the HTTP fallback", Required: false},
				},
				Returns: "json",
			},
			handler: s.getPageMetadata,
		},
		{
			def: Definition{
				Name:        GetPageMetadataSimple,
				Description: "Fetch a page over HTTP and return its metadata",
				Parameters: []Parameter{
					{Name: "url", Type: "string", Description: "Page URL", Required: true},
				},
				Returns: "json",
			},
			handler: s.getPageMetadataSimple,
		},
	}

	for _, c := range commands {
		if err := d.Register(c.def, c.handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) evalInWebview(ctx context.Context, args Args) (string, error) {
	label, err := args.String("label")
	if err != nil {
		return "", err
	}
	script, err := args.String("script")
	if err != nil {
		return "", err
	}
	if err := s.injector.Inject(ctx, label, script); err != nil {
		return "", err
	}
	return EvalAck, nil
}

func (s *Service) getPageProperties(ctx context.Context, args Args) (string, error) {
	label, err := args.String("label")
	if err != nil {
		return "", err
	}
	script, err := args.String("script")
	if err != nil {
		return "", err
	}
	return s.evaluator.Evaluate(ctx, label, script)
}

func (s *Service) getPageMetadata(ctx context.Context, args Args) (string, error) {
	label, err := args.String("label")
	if err != nil {
		return "", err
	}
	pageURL, err := args.OptionalString("url")
	if err != nil {
		return "", err
	}
	return s.resolver.Resolve(ctx, label, pageURL)
}

func (s *Service) getPageMetadataSimple(ctx context.Context, args Args) (string, error) {
	pageURL, err := args.String("url")
	if err != nil {
		return "", err
	}
	return s.resolver.ResolveSimple(ctx, pageURL), nil
}
