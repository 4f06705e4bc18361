package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "github.com/contextdb/wscompile/internal/config"
	"github.com/contextdb/wscompile/internal/wscompile"
)

type compileOptions struct {
	semanticURL   string
	lexicalURL    string
	structuralURL string
	graphURL      string
	sessionURL    string
	memoryURL     string
	rerankerURL   string
	sessionID     string
	userID        string
	taskID        string
	budget        int
	diversity     float64
	maxSourceRat  float64
	expand        bool
	autoClassify  bool
	explain       bool
	format        string
	timeout       time.Duration
}

func newCompileCmd() *cobra.Command {
	var opts compileOptions

	cmd := &cobra.Command{
		Use:   "compile <intent>",
		Short: "Compile a working set for an intent against remote generators",
		Long: `compile runs the full pipeline for one intent: fan-out to whichever
remote generators are configured, fusion and scoring, MMR selection under
a token budget, and hydration.

A generator flag with no value is simply skipped, so a single-channel
compile (e.g. --lexical only) is a normal, supported shape.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.semanticURL, "semantic", "", "Semantic-channel generator base URL")
	cmd.Flags().StringVar(&opts.lexicalURL, "lexical", "", "Lexical-channel generator base URL")
	cmd.Flags().StringVar(&opts.structuralURL, "structural", "", "Structural-channel generator base URL")
	cmd.Flags().StringVar(&opts.graphURL, "graph", "", "Graph-channel generator base URL")
	cmd.Flags().StringVar(&opts.sessionURL, "session-source", "", "Session-prelude source base URL")
	cmd.Flags().StringVar(&opts.memoryURL, "memory-source", "", "Long-term-memory source base URL")
	cmd.Flags().StringVar(&opts.rerankerURL, "reranker", "", "Cross-encoder reranker base URL")
	cmd.Flags().StringVar(&opts.sessionID, "session-id", "", "Session id for the session prelude")
	cmd.Flags().StringVar(&opts.userID, "user-id", "", "User id for long-term-memory lookup")
	cmd.Flags().StringVar(&opts.taskID, "task-id", "", "Task id for tracing this compile (generated if omitted)")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 4000, "Token budget for the working set")
	cmd.Flags().Float64Var(&opts.diversity, "diversity-lambda", 0, "MMR diversity weight in [0,1] (0 uses the configured default)")
	cmd.Flags().Float64Var(&opts.maxSourceRat, "max-source-ratio", 0, "Max fraction of the set from one source (0 uses the configured default)")
	cmd.Flags().BoolVar(&opts.expand, "expand-keywords", false, "Expand derived keywords with code-vocabulary synonyms")
	cmd.Flags().BoolVar(&opts.autoClassify, "auto-classify-weights", false, "Pick score weights from the intent's surface pattern")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Include per-span selection rationale")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall compile timeout")

	return cmd
}

func runCompile(ctx context.Context, cmd *cobra.Command, intent string, opts compileOptions) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	defaults, err := cfgpkg.Load(".")
	if err != nil {
		defaults = cfgpkg.NewDefaults()
	}

	compilerOpts := []wscompile.Option{}

	var gens []wscompile.Generator
	for channel, base := range map[string]string{
		"semantic":   opts.semanticURL,
		"lexical":    opts.lexicalURL,
		"structural": opts.structuralURL,
		"graph":      opts.graphURL,
	} {
		if base == "" {
			continue
		}
		gens = append(gens, wscompile.NewHTTPGenerator(channel, wscompile.HTTPGeneratorConfig{
			BaseURL: base,
			Channel: channel,
		}))
	}
	if len(gens) == 0 {
		return fmt.Errorf("no generators configured: pass at least one of --semantic, --lexical, --structural, --graph")
	}
	compilerOpts = append(compilerOpts, wscompile.WithGenerators(gens...))

	if opts.sessionURL != "" {
		compilerOpts = append(compilerOpts, wscompile.WithSessionSource(&wscompile.HTTPSessionSource{BaseURL: opts.sessionURL}))
	}
	if opts.memoryURL != "" {
		compilerOpts = append(compilerOpts, wscompile.WithMemorySource(&wscompile.HTTPMemorySource{BaseURL: opts.memoryURL}))
	}
	if opts.rerankerURL != "" {
		reranker, err := wscompile.NewCrossEncoderReranker(ctx, wscompile.CrossEncoderRerankerConfig{Endpoint: opts.rerankerURL})
		if err != nil {
			return fmt.Errorf("reranker unavailable at %s: %w", opts.rerankerURL, err)
		}
		defer reranker.Close()
		compilerOpts = append(compilerOpts, wscompile.WithReranker(reranker))
	}
	compiler := wscompile.New(compilerOpts...)

	taskID := opts.taskID
	if taskID == "" {
		taskID = uuid.New().String()
	}

	req := wscompile.CompileRequest{
		Intent:         intent,
		TaskID:         taskID,
		SessionID:      opts.sessionID,
		UserID:         opts.userID,
		BudgetTokens:   opts.budget,
		Explain:        opts.explain,
		ExpandKeywords: opts.expand,
		SoftPrefs: wscompile.SoftPreferences{
			AutoClassifyWeights: opts.autoClassify,
		},
	}
	if opts.diversity > 0 {
		req.SoftPrefs.DiversityLambda = wscompile.Float64(opts.diversity)
	} else {
		req.SoftPrefs.DiversityLambda = wscompile.Float64(defaults.Preferences.DiversityLambda)
	}
	if opts.maxSourceRat > 0 {
		req.SoftPrefs.MaxSingleSourceRatio = wscompile.Float64(opts.maxSourceRat)
	} else {
		req.SoftPrefs.MaxSingleSourceRatio = wscompile.Float64(defaults.Preferences.MaxSingleSourceRatio)
	}

	resp, err := compiler.Compile(ctx, req)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printWorkingSetText(cmd, taskID, resp)
}

func printWorkingSetText(cmd *cobra.Command, taskID string, resp *wscompile.CompileResponse) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "task %s: %d spans, %d tokens\n\n", taskID, len(resp.WorkingSet.Spans), resp.WorkingSet.TotalTokens)
	for _, item := range resp.WorkingSet.Spans {
		fmt.Fprintf(out, "[%2d] %s  weight=%.3f  tokens=%d\n",
			item.SelectionRank, item.SpanRef.SpanID, item.SourceWeight, item.SpanRef.TokenCost)
	}
	if resp.Stats.Reason != "" {
		fmt.Fprintf(out, "\nreason: %s\n", resp.Stats.Reason)
	}
	fmt.Fprintf(out, "\ncandidates: %d generated, %d after filters\n",
		resp.Stats.CandidatesGenerated, resp.Stats.CandidatesAfterFilters)
	fmt.Fprintf(out, "utilization: %.1f%%  generation: %dms  selection: %dms\n",
		resp.Stats.TokenUtilization*100, resp.Stats.GenerationTimeMS, resp.Stats.SelectionTimeMS)
	return nil
}
