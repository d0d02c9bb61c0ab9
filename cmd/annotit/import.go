package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/annotit"
	"github.com/poiesic/annotit/core"
	"github.com/poiesic/annotit/storage"
	"github.com/urfave/cli/v2"
)

// patternDirective starts a pattern line in a dictionary file.
const patternDirective = "#pattern"

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import dictionary entries and patterns from TSV files",
		ArgsUsage: "[file...]",
		Description: "Entry lines are label<TAB>identifier[<TAB>tag,tag]. " +
			"Pattern lines are #pattern<TAB>expression<TAB>identifier. " +
			"Other lines starting with # are comments. Reads stdin when no file is given.",
		Action: importAction,
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{
				Name:     "dict",
				Aliases:  []string{"D"},
				Usage:    "Dictionary to import into, created when missing",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Dictionary description",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Dictionary language",
				Value: "en",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Dictionary surface threshold override, 0 uses the call threshold",
			},
			&cli.IntFlag{
				Name:  "tokens-len-min",
				Usage: "Dictionary minimum span length override",
			},
			&cli.IntFlag{
				Name:  "tokens-len-max",
				Usage: "Dictionary maximum span length override",
			},
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "Replace the configuration of an existing dictionary",
			},
			&cli.BoolFlag{
				Name:  "not-searchable",
				Usage: "Exclude imported entries from semantic matching",
			},
		},
	}
}

func importAction(c *cli.Context) error {
	ctx := c.Context
	name := c.String("dict")

	var sources []io.Reader
	for _, path := range c.Args().Slice() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		sources = append(sources, f)
	}
	if len(sources) == 0 {
		stdin := c.App.Reader
		if stdin == nil {
			stdin = os.Stdin
		}
		sources = append(sources, stdin)
	}

	var entries []*core.Entry
	var patterns []*core.Pattern
	for _, r := range sources {
		e, p, err := parseDictionary(r, name, !c.Bool("not-searchable"))
		if err != nil {
			return err
		}
		entries = append(entries, e...)
		patterns = append(patterns, p...)
	}

	a, err := annotit.NewAnnotator(c.String("db"), annotit.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open annotator: %w", err)
	}
	defer a.Close()

	dict := &core.Dictionary{
		Name:         name,
		Description:  c.String("description"),
		Language:     c.String("language"),
		Threshold:    c.Float64("threshold"),
		TokensLenMin: c.Int("tokens-len-min"),
		TokensLenMax: c.Int("tokens-len-max"),
	}
	if _, err := a.CreateDictionary(ctx, dict, c.Bool("replace")); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("failed to create dictionary: %w", err)
	}

	added, err := a.AddEntries(ctx, entries...)
	if err != nil {
		return fmt.Errorf("failed to import entries: %w", err)
	}
	addedPatterns, err := a.AddPatterns(ctx, patterns...)
	if err != nil {
		return fmt.Errorf("failed to import patterns: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Imported %d entries and %d patterns into %q\n", added, addedPatterns, name)
	return nil
}

// parseDictionary reads entries and patterns of dictionary from r.
func parseDictionary(r io.Reader, dictionary string, searchable bool) ([]*core.Entry, []*core.Pattern, error) {
	var entries []*core.Entry
	var patterns []*core.Pattern

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			rest, ok := strings.CutPrefix(line, patternDirective+"\t")
			if !ok {
				continue
			}
			fields := strings.Split(rest, "\t")
			if len(fields) != 2 || fields[0] == "" || strings.TrimSpace(fields[1]) == "" {
				return nil, nil, fmt.Errorf("line %d: pattern lines need an expression and an identifier", lineNo)
			}
			patterns = append(patterns, &core.Pattern{
				Dictionary: dictionary,
				Expression: fields[0],
				Identifier: strings.TrimSpace(fields[1]),
				Active:     true,
			})
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, nil, fmt.Errorf("line %d: expected label<TAB>identifier[<TAB>tags], got %d fields", lineNo, len(fields))
		}
		label := strings.TrimSpace(fields[0])
		identifier := strings.TrimSpace(fields[1])
		if label == "" || identifier == "" {
			return nil, nil, fmt.Errorf("line %d: empty label or identifier", lineNo)
		}

		entry := &core.Entry{
			Dictionary: dictionary,
			Label:      label,
			Identifier: identifier,
			Searchable: searchable,
		}
		if len(fields) == 3 {
			for tag := range strings.SplitSeq(fields[2], ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					entry.Tags = append(entry.Tags, tag)
				}
			}
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return entries, patterns, nil
}
