// Package generator turns a plain-language test requirement into a saved
// test script for one of the catalogued frameworks.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"dev/bravebird/signup-automation-go/pkg/cache"
	"dev/bravebird/signup-automation-go/pkg/database"
	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/llm"
	"dev/bravebird/signup-automation-go/pkg/logger"
	"dev/bravebird/signup-automation-go/pkg/metrics"
	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/scripts"
	"dev/bravebird/signup-automation-go/pkg/signup"
)

var (
	// ErrEmptyRequirement is returned for a blank requirement
	ErrEmptyRequirement = errors.New("requirement is empty")
	// ErrUnknownProvider is returned when an explicitly requested provider is not configured
	ErrUnknownProvider = errors.New("unknown llm provider")
	// ErrNoProvider is returned when no provider is available and no template applies
	ErrNoProvider = errors.New("no llm provider available")
)

// Options wires the service dependencies. Cache, Store and Writer are optional.
type Options struct {
	Catalog         *frameworks.Catalog
	Providers       map[string]llm.Provider
	DefaultProvider string
	Cache           cache.Cache
	Store           database.Store
	Writer          *scripts.Writer
	Logger          *slog.Logger
}

// Service generates test scripts
type Service struct {
	catalog         *frameworks.Catalog
	providers       map[string]llm.Provider
	defaultProvider string
	cache           cache.Cache
	store           database.Store
	writer          *scripts.Writer
	log             *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a generation service
func New(opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = frameworks.Default()
	}
	if opts.Providers == nil {
		opts.Providers = map[string]llm.Provider{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Service{
		catalog:         opts.Catalog,
		providers:       opts.Providers,
		defaultProvider: opts.DefaultProvider,
		cache:           opts.Cache,
		store:           opts.Store,
		writer:          opts.Writer,
		log:             opts.Logger,
		now:             time.Now,
		newID:           func() string { return uuid.New().String() },
	}
}

// Catalog returns the framework catalogue
func (s *Service) Catalog() *frameworks.Catalog {
	return s.catalog
}

// Providers reports every configured provider and whether it is reachable
func (s *Service) Providers(ctx context.Context) []models.ProviderInfo {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]models.ProviderInfo, 0, len(names))
	for _, name := range names {
		p := s.providers[name]
		infos = append(infos, models.ProviderInfo{
			Name:      name,
			Model:     p.Model(),
			Available: p.IsAvailable(ctx),
			Default:   name == s.defaultProvider,
		})
	}
	return infos
}

// ReadSaved returns the content of a script file written by this service
func (s *Service) ReadSaved(path string) ([]byte, error) {
	if s.writer == nil {
		return nil, errors.New("scripts are not saved to disk")
	}
	return s.writer.Read(path)
}

// ResolveFramework finds the framework named by key or menu choice
func (s *Service) ResolveFramework(key, choice string) (models.Framework, error) {
	switch {
	case key != "":
		return s.catalog.ByKey(key)
	case choice != "":
		return s.catalog.ByChoice(choice)
	default:
		return models.Framework{}, fmt.Errorf("%w: no framework selected", frameworks.ErrUnknownFramework)
	}
}

// Generate produces, saves and records a script for the request.
// Order of preference: cached response, fresh provider response, built-in
// sign-up template.
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest) (*models.GeneratedScript, error) {
	requirement := strings.TrimSpace(req.Requirement)
	if requirement == "" {
		return nil, ErrEmptyRequirement
	}

	fw, err := s.ResolveFramework(req.FrameworkKey, req.Choice)
	if err != nil {
		return nil, err
	}

	provider, err := s.pickProvider(ctx, req.LLMProvider)
	if err != nil {
		return nil, err
	}

	var script *models.GeneratedScript
	if provider != nil {
		script, err = s.fromProvider(ctx, provider, fw, requirement, req.SkipCache)
		if err != nil {
			if !s.templateApplies(fw, requirement) {
				return nil, err
			}
			s.log.Warn("Provider failed, using sign-up template", "provider", provider.Name(), "error", err)
			script = nil
		}
	}

	if script == nil {
		if !s.templateApplies(fw, requirement) {
			return nil, ErrNoProvider
		}
		script, err = s.fromTemplate(fw, requirement, req.Signup)
		if err != nil {
			return nil, err
		}
	}

	script.ID = s.newID()
	script.Requirement = requirement
	script.FrameworkKey = fw.Key
	script.Language = fw.Language
	script.CreatedAt = s.now().UTC()

	if s.writer != nil {
		path, err := s.writer.Save(script.Code, requirement, fw.Extension)
		if err != nil {
			return nil, err
		}
		script.FilePath = path
	}

	if s.store != nil {
		if err := s.store.CreateScript(ctx, script); err != nil {
			s.log.Warn("Failed to persist script", "id", script.ID, "error", err)
		}
	}

	metrics.RecordGeneration(fw.Key, string(script.Source))
	s.log.Info("Script generated",
		"id", script.ID,
		"framework", fw.Key,
		"source", script.Source,
		"provider", script.Provider,
		"path", script.FilePath,
	)

	return script, nil
}

// pickProvider returns the requested provider, the default one, or nil when
// nothing usable is configured
func (s *Service) pickProvider(ctx context.Context, name string) (llm.Provider, error) {
	if name != "" {
		p, ok := s.providers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		if !p.IsAvailable(ctx) {
			s.log.Warn("Requested provider is unavailable", "provider", name)
			return nil, nil
		}
		return p, nil
	}

	if p, ok := s.providers[s.defaultProvider]; ok && p.IsAvailable(ctx) {
		return p, nil
	}

	names := make([]string, 0, len(s.providers))
	for n := range s.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if p := s.providers[n]; p.IsAvailable(ctx) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *Service) fromProvider(ctx context.Context, p llm.Provider, fw models.Framework, requirement string, skipCache bool) (*models.GeneratedScript, error) {
	key := cache.Key(p.Name(), p.Model(), fw.Key, requirement)

	if s.cache != nil && !skipCache {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.RecordCacheHit()
			cached.Source = models.SourceCache
			return cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			metrics.RecordCacheMiss()
		default:
			s.log.Warn("Cache lookup failed", "error", err)
		}
	}

	start := time.Now()
	content, err := p.GenerateTestScript(ctx,
		llm.SystemPrompt(s.catalog.PromptFor(fw.Key)),
		llm.UserPrompt(requirement),
	)
	metrics.RecordGenerationDuration(p.Name(), time.Since(start))
	if err != nil {
		metrics.RecordGenerationError(p.Name())
		return nil, err
	}

	script := &models.GeneratedScript{
		Provider: p.Name(),
		Model:    p.Model(),
		Source:   models.SourceLLM,
		Content:  content,
		Code:     llm.ExtractCode(content),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, script); err != nil {
			s.log.Warn("Cache store failed", "error", err)
		}
	}

	copied := *script
	return &copied, nil
}

func (s *Service) templateApplies(fw models.Framework, requirement string) bool {
	return llm.HasSignupTemplate(fw.Key) && llm.MentionsSignup(requirement)
}

func (s *Service) fromTemplate(fw models.Framework, requirement string, in *models.SignupInput) (*models.GeneratedScript, error) {
	flow := signup.DefaultFlow()
	if in != nil {
		flow = signup.FromInput(*in)
	}

	code, err := llm.RenderSignupTemplate(fw, flow)
	if err != nil {
		return nil, err
	}
	return &models.GeneratedScript{
		Provider: llm.TemplateProvider,
		Source:   models.SourceTemplate,
		Content:  code,
		Code:     code,
	}, nil
}
