package controller

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode"
)

// ArgOptions carries the configuration BuildArgs needs besides the request.
type ArgOptions struct {
	// BasePath resolves relative model references. Empty leaves them relative.
	BasePath       string
	DefaultArgs    []string
	ContextSizeMin int
	ContextSizeMax int
	// NumCPU overrides runtime.NumCPU for the default thread count.
	NumCPU func() int
}

func (c *Controller) argOptions() ArgOptions {
	return ArgOptions{
		BasePath:       c.cfg.BasePath,
		DefaultArgs:    c.cfg.DefaultArgs,
		ContextSizeMin: c.cfg.ContextSizeMin,
		ContextSizeMax: c.cfg.ContextSizeMax,
	}
}

// BuildArgs turns a start request into the koboldcpp argument vector.
// Order: default args, --model, --threads, then the optional --contextsize,
// --gpulayers and --tensor_split.
func BuildArgs(args RunArgs, opts ArgOptions) ([]string, error) {
	model, err := resolveModelPath(args.Model, opts.BasePath)
	if err != nil {
		return nil, err
	}

	threads := 0
	if args.Threads != nil {
		threads = *args.Threads
	}
	if threads < 0 {
		return nil, ErrInvalidArgument("threads must be >= 0, got %d", threads)
	}
	if threads == 0 {
		if opts.NumCPU != nil {
			threads = opts.NumCPU()
		} else {
			threads = runtime.NumCPU()
		}
	}

	out := make([]string, 0, len(opts.DefaultArgs)+8+len(args.TensorSplit))
	out = append(out, opts.DefaultArgs...)
	out = append(out, "--model", model, "--threads", strconv.Itoa(threads))

	if args.ContextSize != nil {
		minSize, maxSize := opts.ContextSizeMin, opts.ContextSizeMax
		if minSize <= 0 {
			minSize = DefaultContextSizeMin
		}
		if maxSize <= 0 {
			maxSize = DefaultContextSizeMax
		}
		if n := *args.ContextSize; n < minSize || n > maxSize {
			return nil, ErrInvalidArgument("unsupported context size %d, allowed %d..%d", n, minSize, maxSize)
		}
		out = append(out, "--contextsize", strconv.Itoa(*args.ContextSize))
	}
	if args.GPULayers != nil {
		if *args.GPULayers < -1 {
			return nil, ErrInvalidArgument("gpu layers must be >= -1, got %d", *args.GPULayers)
		}
		out = append(out, "--gpulayers", strconv.Itoa(*args.GPULayers))
	}
	if len(args.TensorSplit) > 0 {
		out = append(out, "--tensor_split")
		for _, v := range args.TensorSplit {
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}

	for _, tok := range out {
		if strings.IndexFunc(tok, unicode.IsSpace) >= 0 {
			return nil, ErrInvalidArgument("argument %q contains whitespace", tok)
		}
	}
	return out, nil
}

// ModelName derives the reported model name from a model reference: the base
// name of the sanitized path without its extension.
func ModelName(model string) string {
	clean := sanitizeModelPath(model)
	base := filepath.Base(clean)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func resolveModelPath(model, basePath string) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", ErrInvalidArgument("model is required")
	}
	clean := sanitizeModelPath(model)
	if clean == "" || ModelName(model) == "" {
		return "", ErrInvalidArgument("model %q has no usable file name", model)
	}
	if basePath == "" {
		return clean, nil
	}
	base := filepath.Clean(basePath)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(base, clean)
	}
	rel, err := filepath.Rel(base, clean)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidArgument("model %q is outside the models directory", model)
	}
	return clean, nil
}

// sanitizeModelPath strips unsafe characters from every path component and
// drops "." and ".." components. An absolute reference stays absolute.
func sanitizeModelPath(model string) string {
	vol := filepath.VolumeName(model)
	rest := model[len(vol):]
	abs := strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, `\`)

	parts := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' || r == '\\' })
	kept := parts[:0]
	for _, p := range parts {
		p = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) || strings.ContainsRune(`<>:"|?*`, r) {
				return -1
			}
			return r
		}, p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return ""
	}
	joined := filepath.Join(kept...)
	if abs {
		joined = vol + string(filepath.Separator) + joined
	}
	return joined
}
