// Package policy builds formal policies from specification sections through
// the external policy service and reconciles the built policies back from
// service state.
package policy

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/prompts"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/reasoning"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

// MaxPolicyNameLength is the service's limit on policy resource names.
const MaxPolicyNameLength = 63

// MaxDescriptionLength is the service's limit on policy descriptions.
const MaxDescriptionLength = 1024

// Builder creates one formal policy per section and retrieves built policies
// by document and chapter tags. Service state fetched by PoliciesForChapter is
// cached per Builder instance until Refresh.
type Builder struct {
	client       reasoning.Client
	documentUUID string
	pollInterval time.Duration

	fetched  bool
	policies []taggedPolicy
}

type taggedPolicy struct {
	policy  types.Policy
	chapter string
}

// NewBuilder returns a builder for one document's policies. pollInterval is
// the sleep between build-workflow status checks.
func NewBuilder(client reasoning.Client, documentUUID string, pollInterval time.Duration) *Builder {
	return &Builder{
		client:       client,
		documentUUID: documentUUID,
		pollInterval: pollInterval,
	}
}

// ProcessSection creates an empty policy resource for the section, submits the
// section markdown to a build workflow with the compliance-gate requirement,
// and blocks until the workflow reaches a terminal state.
//
// The created resource is not rolled back on failure: a crash mid-build leaves
// an orphaned policy tagged with the section id, and a retry creates a new
// duplicate resource. There is no dedup-by-tag check before creation.
func (b *Builder) ProcessSection(ctx context.Context, section types.Section) error {
	log.Printf("Creating policy for section %s", section.ID)

	name := PolicyName(section)
	description := prompts.Format(prompts.MustGet("policies.json", "policy-description"), map[string]string{
		"Title":  section.Title,
		"Number": strconv.Itoa(section.ChapterNumber),
	})
	if len(description) > MaxDescriptionLength {
		description = description[:MaxDescriptionLength]
	}

	tags := []reasoning.Tag{
		{Key: "document_uuid", Value: b.documentUUID},
		{Key: "chapter_number", Value: strconv.Itoa(section.ChapterNumber)},
		{Key: "section_id", Value: section.ID},
	}

	summary, err := b.client.CreatePolicy(ctx, name, description, tags)
	if err != nil {
		return fmt.Errorf("failed to create policy for section %s: %w", section.ID, err)
	}
	log.Printf("Created policy %s (%s)", name, summary.ResourceID)

	doc := reasoning.BuildDocument{
		Name:        "SourceDocument.txt",
		Content:     base64.StdEncoding.EncodeToString([]byte(section.MarkdownContents)),
		ContentType: "txt",
		Description: prompts.MustGet("policies.json", "gate-requirement"),
	}
	workflowID, err := b.client.StartBuildWorkflow(ctx, summary.ResourceID, doc)
	if err != nil {
		return fmt.Errorf("failed to start build workflow for section %s: %w", section.ID, err)
	}
	log.Printf("Started build workflow %s for policy %s", workflowID, name)

	return b.waitForWorkflow(ctx, summary.ResourceID, workflowID)
}

// waitForWorkflow polls the workflow with a fixed sleep until it reaches a
// terminal state. There is no attempt ceiling: a stuck workflow blocks until
// the context is cancelled.
func (b *Builder) waitForWorkflow(ctx context.Context, resourceID, workflowID string) error {
	for {
		wf, err := b.client.GetBuildWorkflow(ctx, resourceID, workflowID)
		if err != nil {
			return fmt.Errorf("failed to poll build workflow %s: %w", workflowID, err)
		}
		if wf.Terminal() {
			if wf.Status != reasoning.WorkflowCompleted {
				return fmt.Errorf("build workflow %s ended in status %s", workflowID, wf.Status)
			}
			return nil
		}

		log.Printf("Build workflow %s is %s, waiting...", workflowID, wf.Status)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.pollInterval):
		}
	}
}

// PoliciesForChapter returns the name-sorted built policies tagged with this
// document's UUID and the given chapter number. The full service state is
// fetched on first call and reused afterwards.
func (b *Builder) PoliciesForChapter(ctx context.Context, chapterNumber int) ([]types.Policy, error) {
	if b.documentUUID == "" {
		return nil, nil
	}
	if err := b.fetchServicePolicies(ctx); err != nil {
		return nil, err
	}

	want := strconv.Itoa(chapterNumber)
	var result []types.Policy
	for _, tp := range b.policies {
		if tp.chapter == want {
			result = append(result, tp.policy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Refresh discards the cached service state so the next PoliciesForChapter
// call re-fetches it.
func (b *Builder) Refresh() {
	b.fetched = false
	b.policies = nil
}

// fetchServicePolicies lists all policies, keeps those tagged with this
// document's UUID, and exports the definition of each policy's latest version.
func (b *Builder) fetchServicePolicies(ctx context.Context) error {
	if b.fetched {
		return nil
	}

	log.Printf("Fetching policies from the reasoning service...")
	summaries, err := b.client.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}

	var policies []taggedPolicy
	for _, summary := range summaries {
		if summary.Tag("document_uuid") != b.documentUUID {
			continue
		}

		versions, err := b.client.ListPolicyVersions(ctx, summary.ResourceID)
		if err != nil {
			return fmt.Errorf("failed to list versions of %s: %w", summary.ResourceID, err)
		}
		if len(versions) == 0 {
			continue
		}
		latest := latestVersion(versions)

		versionedID := summary.ResourceID
		if latest.Version != types.VersionDraft {
			versionedID = summary.ResourceID + ":" + latest.Version
		}
		detail, err := b.client.GetPolicy(ctx, versionedID)
		if err != nil {
			return fmt.Errorf("failed to get policy %s: %w", versionedID, err)
		}

		log.Printf("Retrieving definition for policy %s", summary.ResourceID)
		def, err := b.exportDefinition(ctx, summary.ResourceID, latest)
		if err != nil {
			return err
		}

		policies = append(policies, taggedPolicy{
			policy:  reasoning.PolicyFromService(detail, def),
			chapter: summary.Tag("chapter_number"),
		})
	}

	b.policies = policies
	b.fetched = true
	return nil
}

// exportDefinition exports a policy definition. Published versions use the
// direct export call; DRAFT-only policies read the definition out of the most
// recent build workflow's result assets, since DRAFT export returns empty on
// the service side.
func (b *Builder) exportDefinition(ctx context.Context, resourceID string, latest reasoning.PolicySummary) (*reasoning.Definition, error) {
	if latest.Version != types.VersionDraft {
		def, err := b.client.ExportPolicyVersion(ctx, resourceID+":"+latest.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to export policy %s version %s: %w", resourceID, latest.Version, err)
		}
		return def, nil
	}

	log.Printf("Only DRAFT version available for %s, using build artifacts workaround", resourceID)
	workflows, err := b.client.ListBuildWorkflows(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list build workflows for %s: %w", resourceID, err)
	}
	if len(workflows) == 0 {
		return nil, fmt.Errorf("no build workflows found for policy %s", resourceID)
	}

	newest := workflows[0]
	for _, wf := range workflows[1:] {
		if wf.CreatedAt.After(newest.CreatedAt) {
			newest = wf
		}
	}

	def, err := b.client.GetBuildWorkflowDefinition(ctx, resourceID, newest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read build artifacts of %s: %w", resourceID, err)
	}
	return def, nil
}

// latestVersion picks the highest version: DRAFT sorts below every published
// version, published versions compare numerically.
func latestVersion(versions []reasoning.PolicySummary) reasoning.PolicySummary {
	rank := func(v string) int {
		if v == types.VersionDraft {
			return -1
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return -1
		}
		return n
	}

	best := versions[0]
	for _, v := range versions[1:] {
		if rank(v.Version) > rank(best.Version) {
			best = v
		}
	}
	return best
}

// PolicyName derives the deterministic policy resource name for a section:
// a Ch<NN>_ prefix followed by the section title restricted to the service's
// allowed character set, truncated to the name length limit.
func PolicyName(section types.Section) string {
	prefix := fmt.Sprintf("Ch%02d_", section.ChapterNumber)

	var slug []byte
	for _, r := range section.Title {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r == '-', r == '_', r == ' ':
			slug = append(slug, byte(r))
		}
	}

	name := prefix + string(slug)
	if len(name) > MaxPolicyNameLength {
		name = name[:MaxPolicyNameLength]
	}
	return name
}
