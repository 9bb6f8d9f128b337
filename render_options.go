package streamdown

// DefaultLanguagePrefix is the class prefix for fenced code blocks that carry
// a language token.
const DefaultLanguagePrefix = "language-"

// Option configures a Converter.
type Option func(*config)

type config struct {
	languagePrefix string
	headingIDs     bool
	frontMatter    bool
	metadata       func(Metadata)
}

func defaultConfig() config {
	return config{languagePrefix: DefaultLanguagePrefix}
}

func resolveConfig(opts []Option) config {
	cfg := configPool.Get().(*config)
	*cfg = defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	cfgVal := *cfg
	*cfg = config{}
	configPool.Put(cfg)
	return cfgVal
}

// WithLanguagePrefix sets the class prefix used on fenced code blocks.
func WithLanguagePrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.languagePrefix = prefix
	}
}

// WithHeadingIDs enables slug id attributes on headings.
func WithHeadingIDs(enabled bool) Option {
	return func(cfg *config) {
		cfg.headingIDs = enabled
	}
}

// WithFrontMatter enables stripping of a front matter block at the start of
// the stream.
func WithFrontMatter(enabled bool) Option {
	return func(cfg *config) {
		cfg.frontMatter = enabled
	}
}

// WithMetadataFunc receives decoded front matter. It implies WithFrontMatter.
func WithMetadataFunc(fn func(Metadata)) Option {
	return func(cfg *config) {
		cfg.metadata = fn
		if fn != nil {
			cfg.frontMatter = true
		}
	}
}
