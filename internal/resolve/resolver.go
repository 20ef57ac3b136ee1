// Package resolve extracts concrete values for a policy's declared variables
// from a set of vendor proposal documents. Results are cached by a digest of
// the proposal bytes and the policy id: the cache key deliberately excludes
// the policy definition hash, because variable extraction depends only on the
// proposal content and the variable declarations, not on rule structure.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/cache"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/llm"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/prompts"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// Resolver binds proposal-specific values onto policy variables through the
// extraction capability.
type Resolver struct {
	client llm.Client
	store  *cache.Store
}

// NewResolver returns a resolver backed by the given extraction client and
// content-addressed store.
func NewResolver(client llm.Client, store *cache.Store) *Resolver {
	return &Resolver{client: client, store: store}
}

// Resolve extracts values for every declared variable of the policy from the
// proposal documents. A cached result for the same proposal bytes and policy
// id skips the extraction capability and is rebound onto the given policy, so
// the returned identity fields always reflect the current build. Cache
// failures in either direction are logged and never fail the resolution.
func (r *Resolver) Resolve(ctx context.Context, policy types.Policy, proposalPaths []string) (*types.ResolvedPolicy, error) {
	contents, err := readAll(ctx, proposalPaths)
	if err != nil {
		return nil, err
	}

	key := cache.Key(cache.Digest(contents...), policy.ID)

	var cached types.ResolvedPolicy
	hit, err := r.store.Load(key, &cached)
	if err != nil {
		log.Printf("Warning: failed to load resolution cache: %v, regenerating", err)
	}
	if hit {
		return rebind(policy, &cached, proposalPaths), nil
	}

	docs := make([]llm.Document, len(contents))
	for i, data := range contents {
		docs[i] = llm.Document{
			Name:     fmt.Sprintf("Proposal doc_%d", i+1),
			MIMEType: "application/pdf",
			Data:     data,
		}
	}

	schema := variableSchema(policy)
	prompt := llm.BuildExtractionPrompt(schema, "")

	raw, err := r.client.GenerateJSONWithDocuments(ctx, prompt, docs, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("resolve: extraction failed for policy %s: %w", policy.Name, err)
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("resolve: failed to parse extraction response for policy %s: %w", policy.Name, err)
	}

	resolved := bindVariables(policy, values)
	rules := resolveRules(policy, resolved)
	result := types.NewResolvedPolicy(policy, resolved, rules, proposalPaths)

	if err := r.store.Save(key, result); err != nil {
		log.Printf("Warning: failed to save resolution cache: %v", err)
	}
	return result, nil
}

// rebind re-anchors a cached resolution on the policy as currently built.
// Identity fields, variable declarations, and rules come from the fresh
// policy; only the extracted values carry over from the cache. A rebuilt
// definition changes the version and rules without invalidating the
// extraction, and the evaluation must target the current version.
func rebind(policy types.Policy, cached *types.ResolvedPolicy, proposalPaths []string) *types.ResolvedPolicy {
	values := make(map[string]any, len(cached.Variables))
	for _, v := range cached.Variables {
		if v.Value != nil {
			values[v.Name] = *v.Value
		}
	}
	resolved := bindVariables(policy, values)
	rules := resolveRules(policy, resolved)
	return types.NewResolvedPolicy(policy, resolved, rules, proposalPaths)
}

// readAll reads the proposal files concurrently, preserving order.
func readAll(ctx context.Context, paths []string) ([][]byte, error) {
	contents := make([][]byte, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("resolve: cannot read proposal file %s: %w", path, err)
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// variableSchema builds the dynamic extraction schema from the policy's
// variable declarations. Builtin-typed variables become nullable free-form
// slots annotated with the expected primitive kind; enumerated variables
// become a closed choice defaulting to a declared *_OTHER value when one
// exists.
func variableSchema(policy types.Policy) llm.ExtractionSchema {
	fields := make([]llm.SchemaField, 0, len(policy.Variables))
	for _, v := range policy.Variables {
		if v.Type.IsEnum() {
			values := make([]string, 0, len(v.Type.Values))
			defaultValue := ""
			for _, tv := range v.Type.Values {
				values = append(values, tv.Value)
				if defaultValue == "" && strings.HasSuffix(tv.Value, "_OTHER") {
					defaultValue = tv.Value
				}
			}
			fields = append(fields, llm.SchemaField{
				Name:        v.Name,
				Description: v.Description,
				Nullable:    true,
				Enum:        values,
				Default:     defaultValue,
			})
			continue
		}

		kind := strings.ToUpper(v.Type.Name)
		fields = append(fields, llm.SchemaField{
			Name:        v.Name,
			Type:        "string",
			Description: fmt.Sprintf("%s, provided as the string representation of a %s variable", v.Description, kind),
			Nullable:    true,
		})
	}

	description := prompts.MustGet("resolve.json", "system") + "\n\n" +
		prompts.Format(prompts.MustGet("resolve.json", "extract-parameters"),
			map[string]string{"Description": policy.Description})

	return llm.ExtractionSchema{
		Name:        "ProposalParameters",
		Description: description,
		Fields:      fields,
	}
}

// bindVariables maps the extraction result back onto the declared variables,
// leaving unresolvable variables with a nil value.
func bindVariables(policy types.Policy, values map[string]any) []types.ResolvedVariable {
	resolved := make([]types.ResolvedVariable, 0, len(policy.Variables))
	for _, v := range policy.Variables {
		rv := types.ResolvedVariable{Name: v.Name, Type: v.Type, Description: v.Description}
		if raw, ok := values[v.Name]; ok && raw != nil {
			value := fmt.Sprintf("%v", raw)
			rv.Value = &value
		}
		resolved = append(resolved, rv)
	}
	return resolved
}

// resolveRules derives each rule's resolved variable subset by intersecting
// the tokens of its formal expression with the resolved variable names.
func resolveRules(policy types.Policy, resolved []types.ResolvedVariable) []types.ResolvedRule {
	rules := make([]types.ResolvedRule, 0, len(policy.Rules))
	for _, rule := range policy.Rules {
		tokens := map[string]bool{}
		for _, tok := range strings.Fields(rule.Expression) {
			tokens[tok] = true
		}
		var vars []types.ResolvedVariable
		for _, rv := range resolved {
			if tokens[rv.Name] {
				vars = append(vars, rv)
			}
		}
		rules = append(rules, types.ResolvedRule{
			ID:                  rule.ID,
			Expression:          rule.Expression,
			AlternateExpression: rule.AlternateExpression,
			Variables:           vars,
		})
	}
	return rules
}

// ProposalDigest returns the content digest of a proposal document set, used
// as the shared component of resolution and compliance cache keys.
func ProposalDigest(proposalPaths []string) (string, error) {
	contents := make([][]byte, 0, len(proposalPaths))
	for _, path := range proposalPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("resolve: cannot read proposal file %s: %w", filepath.Base(path), err)
		}
		contents = append(contents, data)
	}
	return cache.Digest(contents...), nil
}
