package compiler

import (
	"github.com/rs/zerolog"

	"silc/pkg/asm"
)

// Option configures a Compile call.
type Option func(*config)

type config struct {
	logger   zerolog.Logger
	fold     bool
	filename string
}

// WithLogger sets the logger that receives one debug event per pipeline
// stage. The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithConstantFolding enables the Fold pass between analysis and code
// generation.
func WithConstantFolding(enabled bool) Option {
	return func(cfg *config) {
		cfg.fold = enabled
	}
}

// WithFilename names the source in log events.
func WithFilename(filename string) Option {
	return func(cfg *config) {
		cfg.filename = filename
	}
}

// Result is the output of a successful compilation.
type Result struct {
	Assembly string
	Program  *Program     // annotated (and possibly folded) AST
	Symbols  *SymbolTable // function table and per-function frame layout
	Tokens   int
	Folded   int // number of operations removed by Fold
}

// Assemble turns the generated assembly into a machine image and its
// address-to-line source map.
func (r *Result) Assemble() ([]byte, map[uint16]int, error) {
	return asm.Assemble(r.Assembly)
}

// Compile runs lex, parse, analyze, the optional fold pass and code
// generation over src. The first error of any stage aborts compilation and
// no assembly is returned. Errors implement Diagnostic.
func Compile(src string, opts ...Option) (*Result, error) {
	cfg := &config{logger: zerolog.Nop(), filename: "<input>"}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger.With().Str("file", cfg.filename).Logger()

	tokens, err := Lex(src)
	if err != nil {
		log.Debug().Err(err).Msg("lex failed")
		return nil, err
	}
	log.Debug().Int("tokens", len(tokens)).Msg("lexed")

	prog, err := Parse(tokens)
	if err != nil {
		log.Debug().Err(err).Msg("parse failed")
		return nil, err
	}
	log.Debug().Int("functions", len(prog.Funcs)).Bool("expr", prog.Expr != nil).Msg("parsed")

	syms, err := Analyze(prog)
	if err != nil {
		log.Debug().Err(err).Msg("analysis failed")
		return nil, err
	}
	for _, f := range prog.Funcs {
		log.Debug().Str("func", f.Name).Stringer("sig", f.Sig).Int("frame", f.FrameSize).Msg("analyzed")
	}

	res := &Result{Program: prog, Symbols: syms, Tokens: len(tokens)}
	if cfg.fold {
		res.Folded = Fold(prog)
		log.Debug().Int("folded", res.Folded).Msg("constant folding")
	}

	res.Assembly, err = Generate(prog)
	if err != nil {
		log.Debug().Err(err).Msg("code generation failed")
		return nil, err
	}
	log.Debug().Int("bytes", len(res.Assembly)).Msg("generated")
	return res, nil
}
