package orm

import "github.com/go-playground/validator/v10"

type (
	Params struct {
		Validator *validator.Validate // run on every bound struct when not nil
		TrimSpace bool                // compare header names after trimming spaces
		Strict    bool                // every tagged field must find a column
	}

	Option func(p *Params)
)

func NewParams(opts ...Option) *Params {
	params := &Params{}
	for _, opt := range opts {
		opt(params)
	}
	return params
}

func WithValidator(v *validator.Validate) Option { return func(p *Params) { p.Validator = v } }
func WithDefaultValidator() Option              { return func(p *Params) { p.Validator = validator.New() } }
func WithTrimSpace() Option                     { return func(p *Params) { p.TrimSpace = true } }
func WithStrict() Option                        { return func(p *Params) { p.Strict = true } }
