// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/annotit"
	"github.com/poiesic/annotit/annotation"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/semantic"
	"github.com/urfave/cli/v2"
	"github.com/vmihailenco/msgpack/v5"
)

func annotateCommand() *cli.Command {
	return &cli.Command{
		Name:      "annotate",
		Usage:     "Annotate texts against stored dictionaries",
		ArgsUsage: "[file...]",
		Description: "Texts are read from --text flags, from the given files, or from stdin. " +
			"One JSON object (or msgpack map with --format msgpack) is written per text.",
		Action: annotateAction,
		Flags: []cli.Flag{
			dbFlag(),
			configFlag(),
			&cli.StringSliceFlag{
				Name:     "dict",
				Aliases:  []string{"D"},
				Usage:    "Dictionary to annotate with (repeatable)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "text",
				Aliases: []string{"t"},
				Usage:   "Text to annotate (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "lines",
				Usage: "Treat every non-empty input line as a separate text",
			},
			&cli.IntFlag{
				Name:  "tokens-len-min",
				Usage: "Minimum number of tokens in a span",
			},
			&cli.IntFlag{
				Name:  "tokens-len-max",
				Usage: "Maximum number of tokens in a span",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Minimum surface similarity score",
			},
			&cli.Float64Flag{
				Name:  "semantic-threshold",
				Usage: "Minimum semantic similarity score, 0 disables semantic matching",
			},
			&cli.StringFlag{
				Name:  "semantic-policy",
				Usage: "Semantic candidate selection (top, order)",
			},
			&cli.Float64Flag{
				Name:  "retrieval-threshold",
				Usage: "Trigram similarity needed before a dictionary string is scored",
			},
			&cli.BoolFlag{
				Name:  "no-abbreviation",
				Usage: "Disable local abbreviation expansion",
			},
			&cli.BoolFlag{
				Name:  "no-longest",
				Usage: "Do not keep equally scored annotations of the same span",
			},
			&cli.BoolFlag{
				Name:  "superfluous",
				Usage: "Keep annotations nested in other annotations",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Include label, normalized forms, match type and dictionary",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Only match entries carrying this tag (repeatable)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: formatJSON,
				Usage: "Output format (json, msgpack)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent JSON output",
			},
		},
	}
}

const (
	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

// output is the serialized form of one annotated text. msgpack output
// reuses the json field names.
type output struct {
	Text        string            `json:"text"`
	Denotations []core.Denotation `json:"denotations"`
	Error       string            `json:"error,omitempty"`
}

func annotateAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	opts, err := annotationOptions(c, cfg)
	if err != nil {
		return err
	}

	encode, err := newEncoder(c.App.Writer, c.String("format"), c.Bool("pretty"))
	if err != nil {
		return err
	}

	texts, err := readTexts(c)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return core.ErrNoTexts
	}

	annotatorOpts := []annotit.AnnotatorOption{
		annotit.WithLogger(slog.Default()),
		annotit.WithSemanticConfig(cfg.semanticConfig()),
	}
	if opts.Semantic() {
		applyEmbeddingFlags(c, cfg)
		annotatorOpts = append(annotatorOpts, annotit.WithAIConfig(cfg.aiConfig()))
	}

	a, err := annotit.NewAnnotator(c.String("db"), annotatorOpts...)
	if err != nil {
		return fmt.Errorf("failed to open annotator: %w", err)
	}
	defer a.Close()

	results, err := a.Annotate(c.Context, c.StringSlice("dict"), texts, opts)
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}

	for _, r := range results {
		out := output{Text: r.Text, Denotations: r.Denotations}
		if out.Denotations == nil {
			out.Denotations = []core.Denotation{}
		}
		if r.Err != nil {
			out.Error = r.Err.Error()
		}
		if err := encode(out); err != nil {
			return err
		}
	}
	return nil
}

// newEncoder returns a function writing one output value per call: JSON
// lines or a stream of msgpack maps.
func newEncoder(w io.Writer, format string, pretty bool) (func(output) error, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		if pretty {
			enc.SetIndent("", "  ")
		}
		return func(o output) error { return enc.Encode(o) }, nil
	case formatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return func(o output) error { return enc.Encode(o) }, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// annotationOptions merges flags over the config file.
func annotationOptions(c *cli.Context, cfg *fileConfig) (annotation.Options, error) {
	opts := cfg.Annotation.Options
	if c.IsSet("tokens-len-min") {
		opts.TokensLenMin = c.Int("tokens-len-min")
	}
	if c.IsSet("tokens-len-max") {
		opts.TokensLenMax = c.Int("tokens-len-max")
	}
	if c.IsSet("threshold") {
		opts.SurfaceThreshold = c.Float64("threshold")
	}
	if c.IsSet("semantic-threshold") {
		opts.SemanticThreshold = c.Float64("semantic-threshold")
	}
	if c.IsSet("semantic-policy") {
		policy, err := semantic.ParsePolicy(c.String("semantic-policy"))
		if err != nil {
			return opts, err
		}
		opts.SemanticPolicy = policy
	}
	if c.IsSet("retrieval-threshold") {
		opts.RetrievalThreshold = c.Float64("retrieval-threshold")
	}
	if c.Bool("no-abbreviation") {
		opts.Abbreviation = false
	}
	if c.Bool("no-longest") {
		opts.Longest = false
	}
	if c.Bool("superfluous") {
		opts.Superfluous = true
	}
	if c.Bool("verbose") {
		opts.Verbose = true
	}
	if tags := c.StringSlice("tag"); len(tags) > 0 {
		opts.Tags = tags
	}
	return opts, opts.Validate()
}

func applyEmbeddingFlags(c *cli.Context, cfg *fileConfig) {
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
}

// readTexts collects texts from --text, then files, then stdin when
// neither was given.
func readTexts(c *cli.Context) ([]string, error) {
	texts := append([]string(nil), c.StringSlice("text")...)

	var sources []io.Reader
	for _, path := range c.Args().Slice() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sources = append(sources, f)
	}
	if len(texts) == 0 && len(sources) == 0 {
		stdin := c.App.Reader
		if stdin == nil {
			stdin = os.Stdin
		}
		sources = append(sources, stdin)
	}

	for _, r := range sources {
		if c.Bool("lines") {
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					texts = append(texts, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}
