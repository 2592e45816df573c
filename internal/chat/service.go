package chat

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrNotConfigured means the generator credential is absent. Operator
	// action is required; retrying won't help.
	ErrNotConfigured = errors.New("chat is not configured")

	// ErrGeneration is the single error surfaced to visitors for any
	// generator-stage failure. Upstream detail goes to the log only.
	ErrGeneration = errors.New("failed to generate response")
)

// Generator produces reply text for a composed prompt. Ready reports whether
// the generator has a usable credential without performing any network call.
type Generator interface {
	Ready() error
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes the answering pipeline.
type Options struct {
	// MaxHistoryTurns caps the number of client-supplied turns retained
	// before prompt construction. Zero keeps everything.
	MaxHistoryTurns int
	// RequireGrounding fails the request when the content store is
	// unreachable instead of answering with an empty context.
	RequireGrounding bool
	// Instructions overrides DefaultInstructions when non-empty.
	Instructions string
	Logger       *slog.Logger
}

// Service orchestrates one visitor question: credential check, context
// assembly, prompt construction, generation. It holds no per-request state
// and never logs or persists message or history content.
type Service struct {
	assembler *Assembler
	generator Generator
	opts      Options
	logger    *slog.Logger
}

func NewService(assembler *Assembler, generator Generator, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Instructions == "" {
		opts.Instructions = DefaultInstructions
	}
	return &Service{
		assembler: assembler,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Answer turns a visitor message plus client-supplied history into a grounded
// reply. Content-store failures degrade to an empty grounding context unless
// RequireGrounding is set; generator failures surface as ErrGeneration.
func (s *Service) Answer(ctx context.Context, message string, history []Turn) (string, error) {
	if err := s.generator.Ready(); err != nil {
		s.logger.Error("chat request rejected: generator not configured", "error", err)
		return "", ErrNotConfigured
	}

	contextBlock, err := s.assembler.Assemble()
	if err != nil {
		if s.opts.RequireGrounding {
			s.logger.Error("content store unavailable, failing request", "error", err)
			return "", ErrGeneration
		}
		s.logger.Warn("content store unavailable, answering without grounding", "error", err)
		contextBlock = ""
	}

	history = capHistory(history, s.opts.MaxHistoryTurns)
	prompt := BuildPrompt(s.opts.Instructions, contextBlock, history, message)

	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed",
			"error", err,
			"prompt_chars", len(prompt),
			"history_turns", len(history),
		)
		return "", ErrGeneration
	}
	return reply, nil
}
