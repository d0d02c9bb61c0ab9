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
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/annotit"
	"github.com/poiesic/annotit/reembed"
	"github.com/urfave/cli/v2"
)

func embedCommand() *cli.Command {
	return &cli.Command{
		Name:   "embed",
		Usage:  "Generate embeddings for dictionary entries",
		Action: embedAction,
		Flags: []cli.Flag{
			dbFlag(),
			configFlag(),
			&cli.StringSliceFlag{
				Name:     "dict",
				Aliases:  []string{"D"},
				Usage:    "Dictionary to embed (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of entries to embed in each request",
				Value: reembed.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "parallelism",
				Usage: "Number of concurrent embedding requests",
				Value: 2,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N entries",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "Maximum attempts for failed requests",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Reembed entries that already have an embedding",
			},
		},
	}
}

func embedAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	applyEmbeddingFlags(c, cfg)

	aiConfig := cfg.aiConfig()
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		Parallelism:    c.Int("parallelism"),
		ReportInterval: c.Int("report-interval"),
		MaxAttempts:    c.Int("max-attempts"),
		RetryDelay:     c.Duration("retry-delay"),
		Model:          aiConfig.EmbeddingModel,
		Force:          c.Bool("force"),
	}
	if err := reembedConfig.Validate(); err != nil {
		return err
	}

	a, err := annotit.NewAnnotator(c.String("db"),
		annotit.WithLogger(slog.Default()),
		annotit.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open annotator: %w", err)
	}
	defer a.Close()

	progress := c.App.ErrWriter
	if progress == nil {
		progress = os.Stderr
	}
	reembedder, err := a.NewReembedder(reembedConfig, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(progress, "Database: %s\n", c.String("db"))
	fmt.Fprintf(progress, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(progress, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(progress)

	for _, dict := range c.StringSlice("dict") {
		if err := reembedder.Run(c.Context, dict); err != nil {
			return fmt.Errorf("embedding %q failed: %w", dict, err)
		}
	}
	return nil
}
